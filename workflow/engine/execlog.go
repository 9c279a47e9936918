package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shashank-sharma/nenspace-sub007/log"
	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
)

// Log event levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogEvent is one entry of an execution log. Metadata keys are flattened
// into the serialized object alongside timestamp, level and message.
type LogEvent struct {
	Timestamp time.Time
	Level     string
	Message   string
	Metadata  map[string]any
}

// MarshalJSON flattens Metadata into the top-level object.
func (e LogEvent) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		obj[k] = v
	}
	obj["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	obj["level"] = e.Level
	obj["message"] = e.Message
	return json.Marshal(obj)
}

// UnmarshalJSON reverses MarshalJSON, collecting unknown keys back into
// Metadata.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if raw, ok := obj["timestamp"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.Timestamp = ts
		}
	}
	e.Level, _ = obj["level"].(string)
	e.Message, _ = obj["message"].(string)
	delete(obj, "timestamp")
	delete(obj, "level")
	delete(obj, "message")
	if len(obj) > 0 {
		e.Metadata = obj
	}
	return nil
}

// logBuffer accumulates execution log events and flushes the full array
// back onto the execution record. A flush fires when at least batch
// events accumulated since the previous flush, or when interval elapsed;
// a background ticker covers quiet periods.
type logBuffer struct {
	st       store.Store
	exec     *store.WorkflowExecution
	interval time.Duration
	batch    int

	mu         sync.Mutex
	events     []LogEvent
	sinceFlush int
	lastFlush  time.Time
	finished   bool

	stop chan struct{}
	done chan struct{}
}

func newLogBuffer(st store.Store, exec *store.WorkflowExecution, interval time.Duration, batch int) *logBuffer {
	if interval <= 0 {
		interval = DefaultLogFlushInterval
	}
	if batch <= 0 {
		batch = DefaultLogFlushBatch
	}
	b := &logBuffer{
		st:        st,
		exec:      exec,
		interval:  interval,
		batch:     batch,
		lastFlush: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.flushLoop()
	return b
}

func (b *logBuffer) flushLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			if !b.finished && b.sinceFlush > 0 {
				b.flushLocked()
			}
			b.mu.Unlock()
		}
	}
}

// Info appends an info-level event.
func (b *logBuffer) Info(message string, metadata map[string]any) {
	b.append(LevelInfo, message, metadata)
}

// Warn appends a warn-level event.
func (b *logBuffer) Warn(message string, metadata map[string]any) {
	b.append(LevelWarn, message, metadata)
}

// Error appends an error-level event.
func (b *logBuffer) Error(message string, metadata map[string]any) {
	b.append(LevelError, message, metadata)
}

func (b *logBuffer) append(level, message string, metadata map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return
	}
	b.events = append(b.events, LogEvent{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	})
	b.sinceFlush++
	if b.sinceFlush >= b.batch || time.Since(b.lastFlush) >= b.interval {
		b.flushLocked()
	}
}

// flushLocked serializes the full event array onto the record and saves
// it. A flush failure is logged and the events stay buffered for the
// next attempt.
func (b *logBuffer) flushLocked() {
	data, err := json.Marshal(b.events)
	if err != nil {
		log.Errorf("execution %s: serialize logs: %v", b.exec.ID, err)
		return
	}
	b.exec.Logs = string(data)
	if err := b.st.Save(context.Background(), b.exec); err != nil {
		log.Errorf("execution %s: flush logs: %v", b.exec.ID, err)
		return
	}
	b.sinceFlush = 0
	b.lastFlush = time.Now()
}

// Finish stops the ticker, performs the terminal flush, and writes the
// final status, duration, error message and results onto the record.
func (b *logBuffer) Finish(status, errorMessage string, results map[string]any) {
	close(b.stop)
	<-b.done

	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true

	b.exec.Status = status
	b.exec.EndTime = time.Now()
	b.exec.DurationMs = b.exec.EndTime.Sub(b.exec.StartTime).Milliseconds()
	b.exec.ErrorMessage = errorMessage
	if results != nil {
		if data, err := json.Marshal(results); err == nil {
			b.exec.Results = string(data)
		} else {
			log.Errorf("execution %s: serialize results: %v", b.exec.ID, err)
		}
	}
	b.flushLocked()
}
