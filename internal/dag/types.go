package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/provision/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// NodeState tracks a node's progress through execution.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Succeeded
	Failed
	Skipped
)

// String returns the journal-facing name of the state.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Graph is the dependency graph of a provisioning plan.
type Graph struct {
	// Nodes stores all nodes, keyed by their step address.
	Nodes map[string]*Node
}

// Node is a single step in the graph, together with its execution state.
type Node struct {
	ID         string
	Name       string
	StepConfig *config.Step

	// Deps holds the set of nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the set of nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Output is the runner's published output value, set exactly once before
	// any dependent is unlocked.
	Output cty.Value
	// Error is the failure or skip cause, set before the state transition to
	// Failed or Skipped.
	Error error

	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once
}

// State returns the node's current execution state.
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

// setState records a state transition.
func (n *Node) setState(s NodeState) {
	n.state.Store(int32(s))
}

// setInitialCounters seeds the remaining-dependency counter used by the
// executor to decide when a node becomes ready.
func (n *Node) setInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}
