package network

// CorruptShard flips one byte of a stored shard without updating its
// checksum.
func (c *Core) CorruptShard(id string, index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	shard, exists := c.shards[id]
	if !exists || index >= len(shard.Data) {
		return false
	}

	shard.Data[index] ^= 0xff
	return true
}
