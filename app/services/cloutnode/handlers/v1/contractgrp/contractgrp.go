// Package contractgrp maintains the group of handlers the dashboard uses
// for contract compilation, deployments and the network overview.
package contractgrp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloutcontracts/cloutnet/business/web/errs"
	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/network"
	"github.com/cloutcontracts/cloutnet/foundation/web"
	"go.uber.org/zap"
)

// networkStatsEndpoint is the key the network overview is cached under.
const networkStatsEndpoint = "stats"

// Handlers manages the set of contract endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Cache *cachedb.DB
	Core  *network.Core
	BOINC *boinc.Manager
}

// Compile submits a distributed compile of the contract. Sources that were
// compiled before are answered from the cache. Once the work is dispatched,
// large sources, or those the caller asks for, are sharded across the
// storage nodes.
func (h Handlers) Compile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nc newCompile
	if err := web.Decode(r, &nc); err != nil {
		return errs.BadRequest(err)
	}

	if cached, found := h.Cache.CachedContract(nc.Source); found {
		if result, ok := cached.(CompileResult); ok {
			result.Cached = true
			return web.Respond(ctx, w, result, http.StatusOK)
		}
	}

	result := CompileResult{
		ContractName: nc.Name,
		SourceHash:   cachedb.SourceHash(nc.Source),
	}

	id, err := h.BOINC.DistributedCompile(ctx, nc.Source, nc.Name)
	if err != nil {
		return mapError(err)
	}

	unit, err := h.BOINC.Work(id)
	if err != nil {
		return mapError(err)
	}
	result.WorkID = unit.ID
	result.NodeID = unit.TargetNodeID

	// Shards are named after the source hash so sources that share a
	// contract name never overwrite each other.
	if nc.UseSharding || len(nc.Source) >= h.Core.ShardSize() {
		ids, err := h.Core.ShardData([]byte(nc.Source), shardName(nc.Name, result.SourceHash))
		if err != nil {
			return mapError(err)
		}
		result.ShardIDs = ids
	}

	h.Cache.CacheCompiledContract(nc.Source, result)

	h.Log.Infow("contract compile", "traceid", web.GetTraceID(ctx), "contract", nc.Name, "hash", result.SourceHash, "work", id, "shards", len(result.ShardIDs))

	return web.Respond(ctx, w, result, http.StatusAccepted)
}

// AddDeployment records a deployment of a compiled contract.
func (h Handlers) AddDeployment(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nd newDeployment
	if err := web.Decode(r, &nd); err != nil {
		return errs.BadRequest(err)
	}

	dep := Deployment{
		ContractHash:    nd.ContractHash,
		ContractAddress: nd.ContractAddress,
		Network:         nd.Network,
		TxHash:          nd.TxHash,
	}

	h.Cache.CacheDeployment(nd.ContractHash, dep)

	return web.Respond(ctx, w, dep, http.StatusCreated)
}

// QueryDeployment returns the deployment recorded for the contract hash.
func (h Handlers) QueryDeployment(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	dep, found := h.Cache.CachedDeployment(hash)
	if !found {
		return errs.NewTrusted(fmt.Errorf("deployment %q not found", hash), http.StatusNotFound)
	}

	return web.Respond(ctx, w, dep, http.StatusOK)
}

// NetworkStats returns an overview of the network, the dispatcher and the
// cache. The overview is cached for the network data TTL.
func (h Handlers) NetworkStats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if cached, found := h.Cache.CachedNetworkData(networkStatsEndpoint); found {
		return web.Respond(ctx, w, cached, http.StatusOK)
	}

	stats := NetworkStats{
		Network: h.Core.NetworkStatus(),
		BOINC:   h.BOINC.Statistics(),
		Cache:   h.Cache.Stats(),
	}

	h.Cache.CacheNetworkData(networkStatsEndpoint, stats)

	return web.Respond(ctx, w, stats, http.StatusOK)
}

// shardName forms the name the shards of a source are stored under.
func shardName(contract string, sourceHash string) string {
	return contract + "-" + sourceHash
}

func mapError(err error) error {
	return errs.Map(err,
		errs.Mapping{Err: network.ErrNotInitialized, Status: http.StatusServiceUnavailable},
		errs.Mapping{Err: network.ErrNoAvailableNode, Status: http.StatusServiceUnavailable},
		errs.Mapping{Err: boinc.ErrNotConnected, Status: http.StatusServiceUnavailable},
	)
}
