// Package network is the decentralized core. It keeps the registry of
// simulated nodes, splits data into checksummed shards assigned to storage
// nodes, and selects nodes to run tasks.
package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler defines a function that is called when events
// occur in the processing of the network.
type EventHandler func(v string, args ...any)

// state represents where the core is in its lifecycle.
type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
)

// String implements the fmt.Stringer interface.
func (s state) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Config represents the configuration required to construct the core.
type Config struct {
	ShardSize         int
	ReplicationFactor int
	Checksum          string
	Discovery         Discovery
	EvHandler         EventHandler
}

// NetworkStatus represents a snapshot of the network.
type NetworkStatus struct {
	TotalNodes        int    `json:"totalNodes"`
	OnlineNodes       int    `json:"onlineNodes"`
	ActiveTasks       int    `json:"activeTasks"`
	TotalShards       int    `json:"totalShards"`
	IsInitialized     bool   `json:"isInitialized"`
	State             string `json:"state"`
	ShardSize         int    `json:"shardSize"`
	ReplicationFactor int    `json:"replicationFactor"`
	Checksum          string `json:"checksum"`
}

// =============================================================================

// Core manages the node registry, the shard table and the task table.
type Core struct {
	shardSize         int
	replicationFactor int
	checksumName      string
	checksum          ChecksumFunc
	discovery         Discovery
	evHandler         EventHandler

	registry *Registry

	mu     sync.RWMutex
	state  state
	shards map[string]Shard
	tasks  map[string]Task
}

// New constructs a core in the uninitialized state. Initialize must be
// called before data can be sharded or tasks distributed.
func New(cfg Config) (*Core, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.ShardSize <= 0 {
		cfg.ShardSize = DefaultShardSize
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = DefaultReplicationFactor
	}
	if cfg.Checksum == "" {
		cfg.Checksum = ChecksumSHA256
	}
	if cfg.Discovery == nil {
		cfg.Discovery = StaticDiscovery(SeedNodes())
	}

	checksum, err := RetrieveChecksum(cfg.Checksum)
	if err != nil {
		return nil, err
	}

	core := Core{
		shardSize:         cfg.ShardSize,
		replicationFactor: cfg.ReplicationFactor,
		checksumName:      cfg.Checksum,
		checksum:          checksum,
		discovery:         cfg.Discovery,
		evHandler:         ev,
		registry:          NewRegistry(),
		shards:            make(map[string]Shard),
		tasks:             make(map[string]Task),
	}

	return &core, nil
}

// Initialize discovers the nodes and declares the sharding parameters.
// Calling it on a ready core does nothing.
func (c *Core) Initialize(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateReady:
		c.mu.Unlock()
		return nil
	case stateInitializing:
		c.mu.Unlock()
		return errors.New("network initialization already in progress")
	}
	c.state = stateInitializing
	c.mu.Unlock()

	c.evHandler("network: Initialize: started")

	nodes, err := c.discovery.Discover(ctx)
	if err != nil {
		c.setState(stateUninitialized)
		return fmt.Errorf("discovering nodes: %w", err)
	}

	for _, node := range nodes {
		if err := node.validate(); err != nil {
			c.registry.Reset()
			c.setState(stateUninitialized)
			return err
		}
		if !c.registry.Add(node) {
			c.registry.Reset()
			c.setState(stateUninitialized)
			return fmt.Errorf("node %q registered twice", node.ID)
		}
	}
	c.evHandler("network: Initialize: discovered %d nodes", len(nodes))

	c.evHandler("network: Initialize: sharding: shardSize[%d] replicationFactor[%d] checksum[%s]", c.shardSize, c.replicationFactor, c.checksumName)

	c.setState(stateReady)
	c.evHandler("network: Initialize: completed")

	return nil
}

// Shutdown clears every table and returns the core to the uninitialized
// state.
func (c *Core) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evHandler("network: shutdown: started")
	defer c.evHandler("network: shutdown: completed")

	c.registry.Reset()
	c.shards = make(map[string]Shard)
	c.tasks = make(map[string]Task)
	c.state = stateUninitialized
}

// ShardSize returns the size used to split data.
func (c *Core) ShardSize() int {
	return c.shardSize
}

// Nodes returns the registered nodes in registry order.
func (c *Core) Nodes() []Node {
	return c.registry.Copy()
}

// Node returns the registered node for the specified id.
func (c *Core) Node(id string) (Node, bool) {
	return c.registry.Node(id)
}

// ReportLoad is the hook used to report the current load of a node.
func (c *Core) ReportLoad(nodeID string, load float64) error {
	return c.registry.ReportLoad(nodeID, load)
}

// ReportStatus is the hook used to report the availability of a node.
func (c *Core) ReportStatus(nodeID string, status Status) error {
	return c.registry.SetStatus(nodeID, status)
}

// NetworkStatus returns a read only snapshot of the network.
func (c *Core) NetworkStatus() NetworkStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := c.registry.Copy()

	var online int
	for _, node := range nodes {
		if node.Status == StatusOnline {
			online++
		}
	}

	return NetworkStatus{
		TotalNodes:        len(nodes),
		OnlineNodes:       online,
		ActiveTasks:       len(c.tasks),
		TotalShards:       len(c.shards),
		IsInitialized:     c.state == stateReady,
		State:             c.state.String(),
		ShardSize:         c.shardSize,
		ReplicationFactor: c.replicationFactor,
		Checksum:          c.checksumName,
	}
}

// setState changes the lifecycle state under the lock.
func (c *Core) setState(s state) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
}
