// Package mirror defines the durable key/value medium used to keep critical
// cache values across restarts.
package mirror

import "errors"

// ErrNotFound is returned by a medium when the key has never been written or
// has been deleted.
var ErrNotFound = errors.New("key not found")

// Mirror represents the behavior required to be implemented by any package
// providing support for durable storage of cache envelopes.
type Mirror interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}
