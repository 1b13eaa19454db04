// Package kb holds the node registry shared by the topology builder, the
// mobility model and the read-only HTTP surface.
package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

var (
	// ErrNodeExists is returned when a node ID is registered twice.
	ErrNodeExists = errors.New("node already exists")
	// ErrNodeNotFound is returned for lookups of unknown node IDs.
	ErrNodeNotFound = errors.New("node not found")
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventNodeAdded EventType = iota
	EventNodeMoved
	EventReset
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Node model.Node
}

// NodeRegistry is an in-memory, thread-safe store for nodes keyed by ID.
type NodeRegistry struct {
	mu sync.RWMutex

	nodes map[int]*model.Node

	nextSub int
	subs    map[int]func(Event)
}

// NewNodeRegistry constructs an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{
		nodes: make(map[int]*model.Node),
		subs:  make(map[int]func(Event)),
	}
}

// Add registers a node. It returns ErrNodeExists if the ID is taken.
func (r *NodeRegistry) Add(n model.Node) error {
	r.mu.Lock()
	if _, exists := r.nodes[n.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNodeExists, n.ID)
	}
	stored := n
	r.nodes[n.ID] = &stored
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, Event{Type: EventNodeAdded, Node: n})
	return nil
}

// Get returns a copy of the node with the given ID.
func (r *NodeRegistry) Get(id int) (model.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return model.Node{}, false
	}
	return *n, true
}

// List returns a snapshot of all nodes ordered by ID.
func (r *NodeRegistry) List() []model.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		res = append(res, *n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of registered nodes.
func (r *NodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// CountByType returns how many nodes of each type are registered.
func (r *NodeRegistry) CountByType() map[model.NodeType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[model.NodeType]int, 4)
	for _, n := range r.nodes {
		counts[n.Type]++
	}
	return counts
}

// UpdatePosition moves a node and notifies subscribers.
func (r *NodeRegistry) UpdatePosition(id int, pos model.Position) error {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	n.Position = pos
	event := Event{Type: EventNodeMoved, Node: *n}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return nil
}

// Reset removes every node. Subscriptions are kept.
func (r *NodeRegistry) Reset() {
	r.mu.Lock()
	r.nodes = make(map[int]*model.Node)
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, Event{Type: EventReset})
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function that is safe to call more than once.
func (r *NodeRegistry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *NodeRegistry) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, r.subs[id])
	}
	return out
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
