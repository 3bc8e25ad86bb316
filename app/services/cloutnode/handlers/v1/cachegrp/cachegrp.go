// Package cachegrp maintains the group of handlers for the cache store.
package cachegrp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloutcontracts/cloutnet/business/web/errs"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of cache endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Cache *cachedb.DB
}

// Get returns the value stored under the key query parameter.
func (h Handlers) Get(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	key := web.Query(r, "key")
	if key == "" {
		return errs.BadRequest(errors.New("key is required"))
	}

	value, found := h.Cache.Get(key)
	if !found {
		return errs.NewTrusted(fmt.Errorf("key %q not found", key), http.StatusNotFound)
	}

	resp := entry{
		Key:   key,
		Value: value,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Set stores the value in the cache and mirrors it into offline storage.
func (h Handlers) Set(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ne newEntry
	if err := web.Decode(r, &ne); err != nil {
		return errs.BadRequest(err)
	}

	var value any
	if err := json.Unmarshal(ne.Value, &value); err != nil {
		return errs.BadRequest(fmt.Errorf("unable to decode value: %w", err))
	}

	ttl := time.Duration(ne.TTLMs) * time.Millisecond
	h.Cache.Set(ne.Key, value, ttl, ne.Metadata)
	h.Cache.SetOfflineData(ne.Key, value)

	resp := entry{
		Key:   ne.Key,
		Value: value,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Delete removes the key from the cache and from offline storage.
func (h Handlers) Delete(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	key := web.Param(r, "key")

	deleted := h.Cache.Delete(key)
	h.Cache.DeleteOfflineData(key)

	if !deleted {
		return errs.NewTrusted(fmt.Errorf("key %q not found", key), http.StatusNotFound)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Clear removes every entry from the cache and from offline storage.
func (h Handlers) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Cache.Clear()
	removed := h.Cache.ClearOfflineData()

	resp := struct {
		OfflineRemoved int `json:"offlineRemoved"`
	}{
		OfflineRemoved: removed,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Keys returns the set of live keys.
func (h Handlers) Keys(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Cache.Keys(), http.StatusOK)
}

// Stats returns the cache statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Cache.Stats(), http.StatusOK)
}

// Offline returns the envelope stored in offline storage for the key.
func (h Handlers) Offline(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	key := web.Param(r, "key")

	env, found := h.Cache.OfflineEnvelope(key)
	if !found {
		return errs.NewTrusted(fmt.Errorf("offline key %q not found", key), http.StatusNotFound)
	}

	return web.Respond(ctx, w, env, http.StatusOK)
}
