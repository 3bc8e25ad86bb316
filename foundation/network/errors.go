package network

import "errors"

// Set of error conditions raised by the core.
var (
	ErrNotInitialized  = errors.New("network not initialized")
	ErrNotFound        = errors.New("shard not found")
	ErrCorrupted       = errors.New("shard corrupted")
	ErrNoAvailableNode = errors.New("no available node")
)
