package cachedb

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror"
)

// OfflinePrefix namespaces every key written to the durable mirror.
const OfflinePrefix = "cachedb:"

// Envelope is the layout of a value stored in the durable mirror.
type Envelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

// SetOfflineData writes the value to the durable mirror. Failures of the
// medium are logged and otherwise ignored.
func (db *DB) SetOfflineData(key string, value any) {
	if db.mirror == nil {
		db.evHandler("cachedb: SetOfflineData: key[%s]: no mirror configured", key)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		db.evHandler("cachedb: SetOfflineData: key[%s]: ERROR: %s", key, err)
		return
	}

	data, err := json.Marshal(Envelope{Value: raw, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		db.evHandler("cachedb: SetOfflineData: key[%s]: ERROR: %s", key, err)
		return
	}

	if err := db.mirror.Put(OfflinePrefix+key, data); err != nil {
		db.evHandler("cachedb: SetOfflineData: key[%s]: medium unavailable: %s", key, err)
		return
	}

	db.evHandler("cachedb: SetOfflineData: key[%s]: stored", key)
}

// OfflineEnvelope returns the raw envelope stored for the key.
func (db *DB) OfflineEnvelope(key string) (Envelope, bool) {
	if db.mirror == nil {
		return Envelope{}, false
	}

	data, err := db.mirror.Get(OfflinePrefix + key)
	if err != nil {
		if !errors.Is(err, mirror.ErrNotFound) {
			db.evHandler("cachedb: GetOfflineData: key[%s]: medium unavailable: %s", key, err)
		}
		return Envelope{}, false
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		db.evHandler("cachedb: GetOfflineData: key[%s]: ERROR: %s", key, err)
		return Envelope{}, false
	}

	return env, true
}

// GetOfflineData decodes the value stored in the durable mirror into dst
// and reports whether a value was found.
func (db *DB) GetOfflineData(key string, dst any) bool {
	env, ok := db.OfflineEnvelope(key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(env.Value, dst); err != nil {
		db.evHandler("cachedb: GetOfflineData: key[%s]: ERROR: %s", key, err)
		return false
	}

	return true
}

// DeleteOfflineData removes the key from the durable mirror.
func (db *DB) DeleteOfflineData(key string) {
	if db.mirror == nil {
		return
	}

	if err := db.mirror.Delete(OfflinePrefix + key); err != nil {
		db.evHandler("cachedb: DeleteOfflineData: key[%s]: medium unavailable: %s", key, err)
	}
}

// ClearOfflineData removes every key this cache wrote to the durable mirror
// and returns how many were removed.
func (db *DB) ClearOfflineData() int {
	if db.mirror == nil {
		return 0
	}

	keys, err := db.mirror.Keys(OfflinePrefix)
	if err != nil {
		db.evHandler("cachedb: ClearOfflineData: medium unavailable: %s", err)
		return 0
	}

	var removed int
	for _, key := range keys {
		if err := db.mirror.Delete(key); err != nil {
			db.evHandler("cachedb: ClearOfflineData: key[%s]: medium unavailable: %s", strings.TrimPrefix(key, OfflinePrefix), err)
			continue
		}
		removed++
	}

	return removed
}
