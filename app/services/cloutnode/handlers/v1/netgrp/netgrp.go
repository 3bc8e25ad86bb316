// Package netgrp maintains the group of handlers for sharding and the
// state of the decentralized network.
package netgrp

import (
	"context"
	"net/http"

	"github.com/cloutcontracts/cloutnet/business/web/errs"
	"github.com/cloutcontracts/cloutnet/foundation/network"
	"github.com/cloutcontracts/cloutnet/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of network endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	Core *network.Core
}

// ShardData splits the posted data into shards and returns their ids.
func (h Handlers) ShardData(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req shardRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.BadRequest(err)
	}

	ids, err := h.Core.ShardData(req.Data, req.Name)
	if err != nil {
		return mapError(err)
	}

	h.Log.Infow("shard data", "traceid", web.GetTraceID(ctx), "name", req.Name, "bytes", len(req.Data), "shards", len(ids))

	resp := shardResponse{
		ShardIDs: ids,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// ReconstructData reassembles the data held by the listed shards.
func (h Handlers) ReconstructData(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req reconstructRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.BadRequest(err)
	}

	data, err := h.Core.ReconstructData(req.ShardIDs)
	if err != nil {
		return mapError(err)
	}

	resp := reconstructResponse{
		Data: data,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Shard returns a single shard by id.
func (h Handlers) Shard(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	shard, err := h.Core.Shard(web.Param(r, "id"))
	if err != nil {
		return mapError(err)
	}

	return web.Respond(ctx, w, shard, http.StatusOK)
}

// Status returns the snapshot of the network.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Core.NetworkStatus(), http.StatusOK)
}

// Nodes returns the registered nodes in registry order.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Core.Nodes(), http.StatusOK)
}

// mapError converts the network errors into trusted errors with the status
// the client should see.
func mapError(err error) error {
	return errs.Map(err,
		errs.Mapping{Err: network.ErrNotFound, Status: http.StatusNotFound},
		errs.Mapping{Err: network.ErrCorrupted, Status: http.StatusUnprocessableEntity},
		errs.Mapping{Err: network.ErrNotInitialized, Status: http.StatusServiceUnavailable},
		errs.Mapping{Err: network.ErrNoAvailableNode, Status: http.StatusServiceUnavailable},
	)
}
