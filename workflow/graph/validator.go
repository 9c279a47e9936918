package graph

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// ErrCircularDependency is the message reported when cycle detection
// finds a back-edge.
const ErrCircularDependency = "workflow contains circular dependencies"

// ValidationResult reports graph well-formedness. Errors abort execution;
// warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator checks workflow graphs against the registered connector set.
// It performs multi-level validation:
//  1. Structure (nodes present, at least one source and destination)
//  2. Connectors (ids registered, categories agree, required config set)
//  3. Topology (no cycles, category edge rules, reachability)
type Validator struct {
	registry *types.Registry
}

// NewValidator creates a validator backed by the given registry.
func NewValidator(registry *types.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks g and returns the combined result. Running it twice on
// the same graph returns equal results.
func (v *Validator) Validate(g *Graph) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}

	if g == nil || len(g.Nodes) == 0 {
		result.addError("workflow has no nodes")
		return result
	}

	v.validateStructure(g, result)
	v.validateConnectors(g, result)
	v.validateTopology(g, result)
	return result
}

func (v *Validator) validateStructure(g *Graph, result *ValidationResult) {
	if len(g.SourceNodes()) == 0 {
		result.addError("workflow has no source node")
	}
	if len(g.DestinationNodes()) == 0 {
		result.addError("workflow has no destination node")
	}

	for _, node := range sortedNodes(g) {
		switch node.Category {
		case types.SourceConnector:
			if len(node.Inputs) > 0 {
				result.addError("source node %s cannot have incoming connections", node.ID)
			}
		case types.DestinationConnector:
			if len(node.Outputs) > 0 {
				result.addError("destination node %s cannot have outgoing connections", node.ID)
			}
		case types.ProcessorConnector:
			if len(node.Inputs) == 0 {
				result.addWarning("processor node %s has no incoming connections", node.ID)
			}
			if len(node.Outputs) == 0 {
				result.addWarning("processor node %s has no outgoing connections", node.ID)
			}
		default:
			result.addError("node %s has unknown category %q", node.ID, node.Category)
		}

		if len(node.Inputs) == 0 && len(node.Outputs) == 0 && len(g.Nodes) > 1 {
			result.addWarning("node %s is disconnected", node.ID)
		}
	}
}

func (v *Validator) validateConnectors(g *Graph, result *ValidationResult) {
	for _, node := range sortedNodes(g) {
		descriptor, err := v.registry.Get(node.ConnectorID)
		if err != nil {
			result.addError("node %s references unknown connector %s", node.ID, node.ConnectorID)
			continue
		}
		if descriptor.Type != node.Category {
			result.addError("node %s category %s does not match connector %s category %s",
				node.ID, node.Category, node.ConnectorID, descriptor.Type)
		}
		v.validateNodeConfig(node, descriptor, result)
	}
}

// validateNodeConfig enforces the well-known "required" key directly and,
// when the connector publishes a full JSON Schema, runs it through
// gojsonschema for deeper checks.
func (v *Validator) validateNodeConfig(node *Node, descriptor *types.ConnectorDescriptor, result *ValidationResult) {
	schema := descriptor.ConfigSchema
	for _, name := range types.RequiredConfigFields(schema) {
		if _, ok := node.Config[name]; !ok {
			result.addError("node %s: required config field %s is missing", node.ID, name)
		}
	}

	_, hasType := schema["type"]
	_, hasProps := schema["properties"]
	if !hasType && !hasProps {
		return
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(node.Config),
	)
	if err != nil {
		result.addWarning("node %s: config schema could not be evaluated: %v", node.ID, err)
		return
	}
	for _, desc := range res.Errors() {
		// Required fields were already reported above with a stable message.
		if desc.Type() == "required" {
			continue
		}
		result.addError("node %s: config invalid: %s", node.ID, desc.String())
	}
}

func (v *Validator) validateTopology(g *Graph, result *ValidationResult) {
	if v.hasCycle(g) {
		result.addError(ErrCircularDependency)
		return
	}

	reachable := make(map[string]bool)
	for _, source := range g.SourceNodes() {
		v.markReachable(g, source.ID, reachable)
	}
	for _, node := range sortedNodes(g) {
		if !node.IsSource() && !reachable[node.ID] {
			result.addWarning("node %s is not reachable from any source", node.ID)
		}
	}
}

// hasCycle runs DFS with a recursion-stack set; a back-edge is a cycle.
func (v *Validator) hasCycle(g *Graph) bool {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		inStack[id] = true
		for _, next := range g.Nodes[id].Outputs {
			if inStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		inStack[id] = false
		return false
	}

	for id := range g.Nodes {
		if !visited[id] && visit(id) {
			return true
		}
	}
	return false
}

func (v *Validator) markReachable(g *Graph, id string, reachable map[string]bool) {
	if reachable[id] {
		return
	}
	reachable[id] = true
	for _, next := range g.Nodes[id].Outputs {
		v.markReachable(g, next, reachable)
	}
}

func sortedNodes(g *Graph) []*Node {
	return g.nodesWhere(func(*Node) bool { return true })
}
