package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoState is returned by nodes whose kind carries no state.
	ErrNoState = errors.New("node has no state")
	// ErrDestroyed is returned when reading or writing a destroyed node.
	ErrDestroyed = errors.New("node destroyed")
)

// Stateful is the common interface for all patch nodes.
type Stateful interface {
	ID() string
	Kind() string
	// State returns the node's current state. Callers must not mutate it.
	State() (State, error)
	// SetState replaces the node's state and notifies observers.
	SetState(s State) error
	// Observe registers fn to be called after every state change.
	Observe(fn Listener) Handle
	// OnDestroy registers fn to be called once when the node is destroyed.
	OnDestroy(fn Listener) Handle
	// Destroy notifies destroy listeners and drops every registration.
	Destroy()
}

// Node is the default Stateful implementation.
// It is not safe for concurrent use; the host drives it from a single loop.
type Node struct {
	id        string
	kind      string
	stateless bool
	state     State
	destroyed bool

	changed   listenerSet[string]
	destroyFn listenerSet[string]
}

// NewNode creates a node that holds a private copy of initial.
func NewNode(id, kind string, initial State) *Node {
	if initial == nil {
		initial = State{}
	}
	return &Node{id: id, kind: kind, state: initial.Clone()}
}

// NewStatelessNode creates a node whose state operations fail with ErrNoState.
func NewStatelessNode(id, kind string) *Node {
	return &Node{id: id, kind: kind, stateless: true}
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Kind() string { return n.kind }

func (n *Node) State() (State, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	return n.state, nil
}

func (n *Node) SetState(s State) error {
	if err := n.check(); err != nil {
		return err
	}
	if s == nil {
		s = State{}
	}
	n.state = s.Clone()
	n.changed.fire(n.id)
	return nil
}

func (n *Node) check() error {
	switch {
	case n.destroyed:
		return fmt.Errorf("node %s: %w", n.id, ErrDestroyed)
	case n.stateless:
		return fmt.Errorf("node %s (%s): %w", n.id, n.kind, ErrNoState)
	}
	return nil
}

func (n *Node) Observe(fn Listener) Handle {
	return n.changed.add(fn)
}

func (n *Node) OnDestroy(fn Listener) Handle {
	return n.destroyFn.add(fn)
}

// Observers returns the number of live change listeners.
func (n *Node) Observers() int { return n.changed.len() }

func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true
	n.destroyFn.fire(n.id)
	n.destroyFn.reset()
	n.changed.reset()
}
