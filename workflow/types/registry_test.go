package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConnector struct {
	BaseConnector
}

func (c *stubConnector) Execute(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func newStub(id string) *stubConnector {
	return &stubConnector{BaseConnector: BaseConnector{
		ConnID:   id,
		ConnName: "Stub " + id,
		ConnType: ProcessorConnector,
		ConfigSchema: map[string]any{
			"required": []string{"target"},
		},
	}}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func() Connector { return newStub("stub") })

	t.Run("create returns fresh instances", func(t *testing.T) {
		first, err := registry.Create("stub")
		require.NoError(t, err)
		second, err := registry.Create("stub")
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})

	t.Run("unknown id is a configuration error", func(t *testing.T) {
		_, err := registry.Create("missing")
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeConfiguration))
	})

	t.Run("has", func(t *testing.T) {
		assert.True(t, registry.Has("stub"))
		assert.False(t, registry.Has("missing"))
	})

	t.Run("get returns descriptor", func(t *testing.T) {
		descriptor, err := registry.Get("stub")
		require.NoError(t, err)
		assert.Equal(t, "stub", descriptor.ID)
		assert.Equal(t, ProcessorConnector, descriptor.Type)
	})

	t.Run("list sorted by id", func(t *testing.T) {
		registry.Register("alpha", func() Connector { return newStub("alpha") })
		list := registry.List()
		require.Len(t, list, 2)
		assert.Equal(t, "alpha", list[0].ID)
		assert.Equal(t, "stub", list[1].ID)
	})

	t.Run("register replaces existing factory", func(t *testing.T) {
		registry.Register("stub", func() Connector {
			c := newStub("stub")
			c.ConnName = "Replaced"
			return c
		})
		conn, err := registry.Create("stub")
		require.NoError(t, err)
		assert.Equal(t, "Replaced", conn.Name())
	})
}

func TestBaseConnectorConfigure(t *testing.T) {
	t.Run("missing required field", func(t *testing.T) {
		conn := newStub("stub")
		err := conn.Configure(map[string]any{})
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeConfiguration))
	})

	t.Run("stores config", func(t *testing.T) {
		conn := newStub("stub")
		require.NoError(t, conn.Configure(map[string]any{"target": "x", "extra": 1}))
		s, ok := conn.ConfigString("target")
		assert.True(t, ok)
		assert.Equal(t, "x", s)
		v, ok := conn.ConfigValue("extra")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("required list in any form", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"},
			RequiredConfigFields(map[string]any{"required": []any{"a", "b"}}))
		assert.Equal(t, []string{"a"},
			RequiredConfigFields(map[string]any{"required": []string{"a"}}))
		assert.Nil(t, RequiredConfigFields(map[string]any{}))
	})
}
