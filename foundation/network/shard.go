package network

import (
	"bytes"
	"fmt"
	"slices"
)

// DefaultShardSize is the single size every caller uses to split data.
const DefaultShardSize = 64 * 1024

// DefaultReplicationFactor is the number of storage nodes a shard is
// assigned to.
const DefaultReplicationFactor = 3

// Shard represents a fixed size piece of some larger data.
type Shard struct {
	ID       string   `json:"id"`
	Data     []byte   `json:"data"`
	Checksum string   `json:"checksum"`
	Replicas []string `json:"replicas"`
}

// ShardID forms the id of the shard at the index for the named data.
func ShardID(name string, index int) string {
	return fmt.Sprintf("%s-shard-%d", name, index)
}

// ShardData splits the data into consecutive shards of the configured size,
// the last of which may be shorter. The returned ids must be kept in order
// to reconstruct the data.
func (c *Core) ShardData(data []byte, name string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateReady {
		return nil, ErrNotInitialized
	}

	storage := c.storageNodes()

	ids := make([]string, 0, (len(data)+c.shardSize-1)/c.shardSize)
	for i := 0; i*c.shardSize < len(data); i++ {
		start := i * c.shardSize
		end := min(start+c.shardSize, len(data))

		chunk := bytes.Clone(data[start:end])

		shard := Shard{
			ID:       ShardID(name, i),
			Data:     chunk,
			Checksum: c.checksum(chunk),
			Replicas: slices.Clone(storage),
		}

		c.shards[shard.ID] = shard
		ids = append(ids, shard.ID)

		c.evHandler("network: ShardData: shard[%s] bytes[%d] replicas%v", shard.ID, len(chunk), shard.Replicas)
	}

	c.evHandler("network: ShardData: created %d shards for %s", len(ids), name)

	return ids, nil
}

// ReconstructData verifies and concatenates the shards in the order given.
// Any unknown or corrupted shard fails the whole call.
func (c *Core) ReconstructData(ids []string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var size int
	shards := make([]Shard, 0, len(ids))
	for _, id := range ids {
		shard, exists := c.shards[id]
		if !exists {
			return nil, fmt.Errorf("shard %q: %w", id, ErrNotFound)
		}

		if c.checksum(shard.Data) != shard.Checksum {
			return nil, fmt.Errorf("shard %q: %w", id, ErrCorrupted)
		}

		shards = append(shards, shard)
		size += len(shard.Data)
	}

	data := make([]byte, 0, size)
	for _, shard := range shards {
		data = append(data, shard.Data...)
	}

	c.evHandler("network: ReconstructData: reconstructed %d bytes from %d shards", len(data), len(ids))

	return data, nil
}

// Shard returns a copy of the shard for the specified id.
func (c *Core) Shard(id string) (Shard, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	shard, exists := c.shards[id]
	if !exists {
		return Shard{}, fmt.Errorf("shard %q: %w", id, ErrNotFound)
	}

	shard.Data = bytes.Clone(shard.Data)
	shard.Replicas = slices.Clone(shard.Replicas)

	return shard, nil
}

// storageNodes returns the ids of the first nodes in registry order that
// can store shards, up to the replication factor.
func (c *Core) storageNodes() []string {
	ids := make([]string, 0, c.replicationFactor)
	for _, node := range c.registry.Copy() {
		if len(ids) == c.replicationFactor {
			break
		}
		if node.Has(CapabilityStorage) {
			ids = append(ids, node.ID)
		}
	}
	return ids
}
