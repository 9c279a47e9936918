// Package graph builds and validates the in-memory workflow graph the
// engine executes. Graphs are built fresh per execution or introspection
// call and are never shared.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// Temporary id prefixes minted by the editor. Nodes and edges carrying
// them get durable ids on save.
const (
	TempNodePrefix = "node_"
	TempEdgePrefix = "edge_"
)

// IsTempID reports whether id is a client-generated temporary id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempNodePrefix) || strings.HasPrefix(id, TempEdgePrefix)
}

// Position is the editor placement of a node. The engine treats it as
// opaque.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is an in-memory workflow node, post-build.
type Node struct {
	ID          string
	Name        string
	Category    types.ConnectorType
	ConnectorID string
	Config      map[string]any
	Position    Position
	// Inputs and Outputs are neighbour node ids populated from the edge
	// list during build.
	Inputs  []string
	Outputs []string
}

// IsSource reports whether the node is a source node.
func (n *Node) IsSource() bool { return n.Category == types.SourceConnector }

// IsDestination reports whether the node is a destination node.
func (n *Node) IsDestination() bool { return n.Category == types.DestinationConnector }

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string
	SourceNodeID string
	TargetNodeID string
}

// Graph is the executable form of a workflow.
type Graph struct {
	Nodes map[string]*Node
	Edges []*Edge
}

// SourceNodes returns all source nodes ordered by id.
func (g *Graph) SourceNodes() []*Node {
	return g.nodesWhere(func(n *Node) bool { return n.IsSource() })
}

// DestinationNodes returns all destination nodes ordered by id.
func (g *Graph) DestinationNodes() []*Node {
	return g.nodesWhere(func(n *Node) bool { return n.IsDestination() })
}

func (g *Graph) nodesWhere(keep func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeLabels returns the id to display-name mapping used for schema
// conflict prefixing.
func (g *Graph) NodeLabels() map[string]string {
	labels := make(map[string]string, len(g.Nodes))
	for id, n := range g.Nodes {
		labels[id] = n.Name
	}
	return labels
}

// Build compiles persisted node and connection rows into a Graph. Node
// config JSON is parsed, and Inputs/Outputs are populated from the edge
// list. Edges referencing missing nodes fail the build.
func Build(nodes []*store.WorkflowNode, connections []*store.WorkflowConnection) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*Node, len(nodes))}

	for _, row := range nodes {
		config := make(map[string]any)
		if strings.TrimSpace(row.Config) != "" {
			if err := json.Unmarshal([]byte(row.Config), &config); err != nil {
				return nil, fmt.Errorf("node %s: invalid config JSON: %w", row.ID, err)
			}
		}
		g.Nodes[row.ID] = &Node{
			ID:          row.ID,
			Name:        row.Name,
			Category:    types.ConnectorType(row.Category),
			ConnectorID: row.ConnectorID,
			Config:      config,
			Position:    Position{X: row.PositionX, Y: row.PositionY},
		}
	}

	for _, row := range connections {
		source, ok := g.Nodes[row.SourceNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %s: source node %s does not exist", row.ID, row.SourceNodeID)
		}
		target, ok := g.Nodes[row.TargetNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %s: target node %s does not exist", row.ID, row.TargetNodeID)
		}
		g.Edges = append(g.Edges, &Edge{
			ID:           row.ID,
			SourceNodeID: row.SourceNodeID,
			TargetNodeID: row.TargetNodeID,
		})
		source.Outputs = append(source.Outputs, row.TargetNodeID)
		target.Inputs = append(target.Inputs, row.SourceNodeID)
	}

	return g, nil
}
