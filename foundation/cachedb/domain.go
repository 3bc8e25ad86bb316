package cachedb

import (
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// TTLs applied by the domain helpers.
const (
	ContractTTL    = 2 * time.Hour
	DeploymentTTL  = 24 * time.Hour
	NetworkDataTTL = 5 * time.Minute
)

// Key prefixes used by the domain helpers.
const (
	contractPrefix   = "contract:"
	deploymentPrefix = "deployment:"
	networkPrefix    = "network:"
)

// SourceHash returns the keccak256 hash of the contract source as a hex
// string. It is the identity used to memoize compilation results.
func SourceHash(source string) string {
	return crypto.Keccak256Hash([]byte(source)).Hex()
}

// CacheCompiledContract stores a compilation result keyed by the hash of the
// source that produced it.
func (db *DB) CacheCompiledContract(source string, result any) {
	db.Set(contractPrefix+SourceHash(source), result, ContractTTL, nil)
}

// CachedContract returns the compilation result for the source if one is
// still cached.
func (db *DB) CachedContract(source string) (any, bool) {
	return db.Get(contractPrefix + SourceHash(source))
}

// CacheDeployment stores a deployment result keyed by the contract hash.
func (db *DB) CacheDeployment(contractHash string, result any) {
	db.Set(deploymentPrefix+contractHash, result, DeploymentTTL, nil)
}

// CachedDeployment returns the deployment result for the contract hash if
// one is still cached.
func (db *DB) CachedDeployment(contractHash string) (any, bool) {
	return db.Get(deploymentPrefix + contractHash)
}

// CacheNetworkData stores data fetched from the named endpoint.
func (db *DB) CacheNetworkData(endpoint string, data any) {
	db.Set(networkPrefix+endpoint, data, NetworkDataTTL, nil)
}

// CachedNetworkData returns the data cached for the named endpoint.
func (db *DB) CachedNetworkData(endpoint string) (any, bool) {
	return db.Get(networkPrefix + endpoint)
}
