package network

import (
	"fmt"
	"slices"
	"sync"
)

// Status represents the availability of a node.
type Status string

// Set of node status values.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusBusy    Status = "busy"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusBusy:
		return true
	}
	return false
}

// Set of capabilities the core itself relies on.
const (
	CapabilityStorage = "storage"
	CapabilityCompute = "compute"
)

// Node represents a compute or storage participant in the network.
type Node struct {
	ID           string   `json:"id" yaml:"id"`
	Address      string   `json:"address" yaml:"address"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Load         float64  `json:"load" yaml:"load"`
	Status       Status   `json:"status" yaml:"status"`
}

// Has reports whether the node advertises the capability.
func (n Node) Has(capability string) bool {
	return slices.Contains(n.Capabilities, capability)
}

// validate checks the node carries the fields the registry depends on.
func (n Node) validate() error {
	if n.ID == "" {
		return fmt.Errorf("node %q: missing id", n.Address)
	}
	if !n.Status.Valid() {
		return fmt.Errorf("node %q: invalid status %q", n.ID, n.Status)
	}
	if n.Load < 0 || n.Load > 1 {
		return fmt.Errorf("node %q: load %v out of range [0,1]", n.ID, n.Load)
	}
	return nil
}

// clone returns a copy of the node that shares no memory with the original.
func (n Node) clone() Node {
	n.Capabilities = slices.Clone(n.Capabilities)
	return n
}

// =============================================================================

// Registry maintains the set of known nodes. Iteration order is the order
// in which nodes were added.
type Registry struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]Node
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]Node),
	}
}

// Add adds a new node to the registry. It returns false if a node with the
// same id is already registered.
func (r *Registry) Add(node Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID]; exists {
		return false
	}

	r.nodes[node.ID] = node.clone()
	r.order = append(r.order, node.ID)

	return true
}

// Remove removes a node from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; !exists {
		return
	}

	delete(r.nodes, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
}

// Node returns a copy of the node for the specified id.
func (r *Registry) Node(id string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[id]
	if !exists {
		return Node{}, false
	}

	return node.clone(), true
}

// Copy returns the known nodes in registry order.
func (r *Registry) Copy() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]Node, 0, len(r.order))
	for _, id := range r.order {
		nodes = append(nodes, r.nodes[id].clone())
	}

	return nodes
}

// Len returns the number of known nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// ReportLoad records the load reported for the node, clamped to [0,1].
func (r *Registry) ReportLoad(id string, load float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[id]
	if !exists {
		return fmt.Errorf("node %q does not exist", id)
	}

	node.Load = min(max(load, 0), 1)
	r.nodes[id] = node

	return nil
}

// SetStatus records the status reported for the node.
func (r *Registry) SetStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[id]
	if !exists {
		return fmt.Errorf("node %q does not exist", id)
	}

	node.Status = status
	r.nodes[id] = node

	return nil
}

// Reset removes every node from the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.nodes = make(map[string]Node)
}
