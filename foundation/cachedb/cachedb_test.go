package cachedb_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror/disk"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newDB(t *testing.T, cfg cachedb.Config) *cachedb.DB {
	db := cachedb.New(cfg)
	t.Cleanup(db.Shutdown)
	return db
}

func TestTTL(t *testing.T) {
	t.Log("Given the need to expire entries after their TTL.")
	{
		t.Logf("\tTest 0:\tWhen setting a key with a 100ms TTL.")
		{
			db := newDB(t, cachedb.Config{})

			db.Set("k", "v", 100*time.Millisecond, nil)

			v, ok := db.Get("k")
			if !ok || v != "v" {
				t.Logf("\t%s\tTest 0:\tgot: %v %v", failed, v, ok)
				t.Fatalf("\t%s\tTest 0:\tShould get the value immediately.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the value immediately.", success)

			time.Sleep(150 * time.Millisecond)

			if v, ok := db.Get("k"); ok {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, v)
				t.Fatalf("\t%s\tTest 0:\tShould not get the value after the TTL.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not get the value after the TTL.", success)

			if n := db.Stats().TotalEntries; n != 0 {
				t.Logf("\t%s\tTest 0:\tgot: %d", failed, n)
				t.Fatalf("\t%s\tTest 0:\tShould have physically removed the entry.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have physically removed the entry.", success)
		}

		t.Logf("\tTest 1:\tWhen checking existence of an expired key.")
		{
			db := newDB(t, cachedb.Config{})

			db.Set("k", "v", 20*time.Millisecond, nil)
			time.Sleep(50 * time.Millisecond)

			if db.Has("k") {
				t.Fatalf("\t%s\tTest 1:\tShould not report an expired key.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not report an expired key.", success)

			if n := db.Stats().TotalEntries; n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould remove the expired entry on Has, got %d entries.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould remove the expired entry on Has.", success)
		}

		t.Logf("\tTest 2:\tWhen an expired key is never read again.")
		{
			db := newDB(t, cachedb.Config{SweepInterval: 20 * time.Millisecond})

			db.Set("write-once", "v", 10*time.Millisecond, nil)
			db.Set("long-lived", "v", time.Hour, nil)
			time.Sleep(150 * time.Millisecond)

			if n := db.Stats().TotalEntries; n != 1 {
				t.Logf("\t%s\tTest 2:\tgot: %d", failed, n)
				t.Fatalf("\t%s\tTest 2:\tShould have the sweeper remove the expired entry.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould have the sweeper remove the expired entry.", success)
		}
	}
}

func TestEviction(t *testing.T) {
	t.Log("Given the need to bound the number of entries.")
	{
		t.Logf("\tTest 0:\tWhen inserting capacity + 1 distinct keys.")
		{
			db := newDB(t, cachedb.Config{MaxEntries: 3})

			db.Set("a", 1, 0, nil)
			db.Set("b", 2, 0, nil)
			db.Set("c", 3, 0, nil)

			// Reading the oldest key must not protect it from eviction.
			db.Get("a")

			db.Set("d", 4, 0, nil)

			if n := db.Stats().TotalEntries; n != 3 {
				t.Logf("\t%s\tTest 0:\tgot: %d", failed, n)
				t.Fatalf("\t%s\tTest 0:\tShould evict exactly one entry.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould evict exactly one entry.", success)

			if db.Has("a") {
				t.Fatalf("\t%s\tTest 0:\tShould evict the earliest created key.", failed)
			}
			for _, key := range []string{"b", "c", "d"} {
				if !db.Has(key) {
					t.Fatalf("\t%s\tTest 0:\tShould keep key %q.", failed, key)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould evict the earliest created key.", success)
		}

		t.Logf("\tTest 1:\tWhen overwriting a key in a full cache.")
		{
			db := newDB(t, cachedb.Config{MaxEntries: 2})

			db.Set("a", 1, 0, nil)
			db.Set("b", 2, 0, nil)
			db.Set("b", 3, 0, nil)

			if !db.Has("a") || !db.Has("b") {
				t.Fatalf("\t%s\tTest 1:\tShould not evict when overwriting.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not evict when overwriting.", success)
		}
	}
}

func TestHitMiss(t *testing.T) {
	t.Log("Given the need to account for cache hits and misses.")
	{
		t.Logf("\tTest 0:\tWhen no requests have been made.")
		{
			db := newDB(t, cachedb.Config{})

			stats := db.Stats()
			if stats.HitRate != 0 || stats.MissRate != 0 {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, stats)
				t.Fatalf("\t%s\tTest 0:\tShould report zero rates.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report zero rates.", success)
		}

		t.Logf("\tTest 1:\tWhen making 3 hits, 2 misses and several Has calls.")
		{
			db := newDB(t, cachedb.Config{})

			db.Set("present", "v", 0, nil)
			db.Set("expiring", "v", 10*time.Millisecond, nil)
			time.Sleep(30 * time.Millisecond)

			for i := 0; i < 3; i++ {
				db.Get("present")
			}
			db.Get("absent")
			db.Get("expiring")

			db.Has("present")
			db.Has("absent")

			stats := db.Stats()
			if math.Abs(stats.HitRate-3.0/5.0) > 1e-9 || math.Abs(stats.MissRate-2.0/5.0) > 1e-9 {
				t.Logf("\t%s\tTest 1:\tgot: %+v", failed, stats)
				t.Fatalf("\t%s\tTest 1:\tShould report hitRate 0.6 and missRate 0.4.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould report hitRate 0.6 and missRate 0.4.", success)

			if stats.MemoryUsage <= 0 {
				t.Fatalf("\t%s\tTest 1:\tShould estimate a positive memory usage.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould estimate a positive memory usage.", success)

			db.Clear()
			stats = db.Stats()
			if stats.TotalEntries != 0 || stats.HitRate != 0 || stats.MissRate != 0 {
				t.Logf("\t%s\tTest 1:\tgot: %+v", failed, stats)
				t.Fatalf("\t%s\tTest 1:\tShould reset entries and counters on Clear.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reset entries and counters on Clear.", success)
		}
	}
}

func TestDelete(t *testing.T) {
	t.Log("Given the need to delete entries.")
	{
		t.Logf("\tTest 0:\tWhen deleting present and absent keys.")
		{
			db := newDB(t, cachedb.Config{})
			db.Set("k", "v", 0, map[string]any{"source": "test"})

			if !db.Delete("k") {
				t.Fatalf("\t%s\tTest 0:\tShould report removing a present key.", failed)
			}
			if db.Delete("k") {
				t.Fatalf("\t%s\tTest 0:\tShould report nothing removed for an absent key.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report whether a removal occurred.", success)

			if keys := db.Keys(); len(keys) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have no keys left, got %v.", failed, keys)
			}
			t.Logf("\t%s\tTest 0:\tShould have no keys left.", success)
		}
	}
}

func TestDomainHelpers(t *testing.T) {
	t.Log("Given the need to memoize contract and network results.")
	{
		t.Logf("\tTest 0:\tWhen caching a compiled contract.")
		{
			db := newDB(t, cachedb.Config{})

			const source = "pragma solidity ^0.8.0; contract A {}"
			db.CacheCompiledContract(source, "0x6080")

			v, ok := db.CachedContract(source)
			if !ok || v != "0x6080" {
				t.Fatalf("\t%s\tTest 0:\tShould find the contract by its source.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find the contract by its source.", success)

			if _, ok := db.CachedContract(source + " "); ok {
				t.Fatalf("\t%s\tTest 0:\tShould not find a different source.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not find a different source.", success)

			if keys := db.Keys(); len(keys) != 1 || keys[0] != "contract:"+cachedb.SourceHash(source) {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, keys)
				t.Fatalf("\t%s\tTest 0:\tShould key the entry by the source hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould key the entry by the source hash.", success)
		}

		t.Logf("\tTest 1:\tWhen caching deployments and network data.")
		{
			db := newDB(t, cachedb.Config{})

			db.CacheDeployment("abc", "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
			db.CacheNetworkData("stats", 42)

			if v, ok := db.CachedDeployment("abc"); !ok || v != "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32" {
				t.Fatalf("\t%s\tTest 1:\tShould find the deployment.", failed)
			}
			if v, ok := db.CachedNetworkData("stats"); !ok || v != 42 {
				t.Fatalf("\t%s\tTest 1:\tShould find the network data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould find deployments and network data.", success)
		}
	}
}

// =============================================================================

type brokenMirror struct{}

func (brokenMirror) Put(string, []byte) error { return errors.New("disk full") }
func (brokenMirror) Get(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenMirror) Delete(string) error { return errors.New("disk gone") }
func (brokenMirror) Keys(string) ([]string, error) { return nil, errors.New("disk gone") }

func TestOfflineData(t *testing.T) {
	t.Log("Given the need to keep critical values in a durable mirror.")
	{
		t.Logf("\tTest 0:\tWhen using a working medium.")
		{
			mem := memory.New()
			db := newDB(t, cachedb.Config{Mirror: mem})

			type record struct {
				Address string `json:"address"`
			}

			db.SetOfflineData("wallet", record{Address: "0xabc"})

			var got record
			if !db.GetOfflineData("wallet", &got) || got.Address != "0xabc" {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, got)
				t.Fatalf("\t%s\tTest 0:\tShould read back the stored value.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould read back the stored value.", success)

			if _, err := mem.Get(cachedb.OfflinePrefix + "wallet"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould namespace the key in the medium: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould namespace the key in the medium.", success)

			env, ok := db.OfflineEnvelope("wallet")
			if !ok || env.Timestamp == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould stamp the envelope.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould stamp the envelope.", success)

			if db.Has("wallet") {
				t.Fatalf("\t%s\tTest 0:\tShould keep the mirror independent of the TTL cache.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the mirror independent of the TTL cache.", success)

			mem.Put("unrelated", []byte("x"))
			db.SetOfflineData("second", 2)
			if n := db.ClearOfflineData(); n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould clear only namespaced keys, removed %d.", failed, n)
			}
			if _, err := mem.Get("unrelated"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould leave unrelated keys alone.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould clear only namespaced keys.", success)
		}

		t.Logf("\tTest 1:\tWhen the medium is unavailable.")
		{
			db := newDB(t, cachedb.Config{Mirror: brokenMirror{}})

			db.SetOfflineData("k", "v")

			var got string
			if db.GetOfflineData("k", &got) {
				t.Fatalf("\t%s\tTest 1:\tShould degrade to no value.", failed)
			}
			db.DeleteOfflineData("k")
			if n := db.ClearOfflineData(); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould degrade to nothing cleared.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould degrade without failing.", success)
		}

		t.Logf("\tTest 2:\tWhen no medium is configured.")
		{
			db := newDB(t, cachedb.Config{})

			db.SetOfflineData("k", "v")

			var got string
			if db.GetOfflineData("k", &got) {
				t.Fatalf("\t%s\tTest 2:\tShould degrade to no value.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould degrade to no value.", success)
		}

		t.Logf("\tTest 3:\tWhen storing a long key on disk.")
		{
			dsk, err := disk.New(t.TempDir())
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to open the disk medium: %s", failed, err)
			}
			defer dsk.Close()

			db := newDB(t, cachedb.Config{Mirror: dsk})

			key := strings.Repeat("k", 130)
			db.SetOfflineData(key, "value")

			var got string
			if !db.GetOfflineData(key, &got) || got != "value" {
				t.Fatalf("\t%s\tTest 3:\tShould read back the stored value, got %q.", failed, got)
			}
			t.Logf("\t%s\tTest 3:\tShould read back the stored value.", success)

			if n := db.ClearOfflineData(); n != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould clear the long key, removed %d.", failed, n)
			}
			t.Logf("\t%s\tTest 3:\tShould clear the long key.", success)
		}
	}
}
