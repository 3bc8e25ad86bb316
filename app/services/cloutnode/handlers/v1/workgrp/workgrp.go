// Package workgrp maintains the group of handlers for distributed work and
// the event stream.
package workgrp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloutcontracts/cloutnet/business/web/errs"
	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/events"
	"github.com/cloutcontracts/cloutnet/foundation/network"
	"github.com/cloutcontracts/cloutnet/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of work endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	BOINC *boinc.Manager
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Submit accepts a unit of work and returns it once it is dispatched.
func (h Handlers) Submit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nw newWork
	if err := web.Decode(r, &nw); err != nil {
		return errs.BadRequest(err)
	}

	kind, err := boinc.ParseKind(nw.Kind)
	if err != nil {
		return errs.BadRequest(err)
	}

	var payload any
	if len(nw.Payload) > 0 {
		if err := json.Unmarshal(nw.Payload, &payload); err != nil {
			return errs.BadRequest(err)
		}
	}

	estimated := time.Duration(nw.EstimatedMs) * time.Millisecond

	id, err := h.BOINC.SubmitWork(ctx, kind, payload, nw.Priority, estimated)
	if err != nil {
		return mapError(err)
	}

	return h.respondUnit(ctx, w, id)
}

// Compile submits a distributed compile of the contract source.
func (h Handlers) Compile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nc newCompile
	if err := web.Decode(r, &nc); err != nil {
		return errs.BadRequest(err)
	}

	id, err := h.BOINC.DistributedCompile(ctx, nc.SourceCode, nc.ContractName)
	if err != nil {
		return mapError(err)
	}

	return h.respondUnit(ctx, w, id)
}

// Verify submits a distributed verification of a deployed contract.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nv newVerify
	if err := web.Decode(r, &nv); err != nil {
		return errs.BadRequest(err)
	}

	id, err := h.BOINC.DistributedVerify(ctx, nv.ContractAddress, nv.SourceCode)
	if err != nil {
		return mapError(err)
	}

	return h.respondUnit(ctx, w, id)
}

// Work returns the current state of a work unit for status polling.
func (h Handlers) Work(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	unit, err := h.BOINC.Work(web.Param(r, "id"))
	if err != nil {
		return mapError(err)
	}

	return web.Respond(ctx, w, unit, http.StatusOK)
}

// List returns every work unit in submission order.
func (h Handlers) List(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.BOINC.List(), http.StatusOK)
}

// Stats returns the dispatcher statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.BOINC.Statistics(), http.StatusOK)
}

// Projects returns the registered projects.
func (h Handlers) Projects(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.BOINC.Projects(), http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// respondUnit writes the dispatched unit back with a 202 since the work
// completes later.
func (h Handlers) respondUnit(ctx context.Context, w http.ResponseWriter, id string) error {
	unit, err := h.BOINC.Work(id)
	if err != nil {
		return mapError(err)
	}

	h.Log.Infow("work dispatched", "traceid", web.GetTraceID(ctx), "work", unit.ID, "kind", unit.Kind, "node", unit.TargetNodeID)

	return web.Respond(ctx, w, unit, http.StatusAccepted)
}

func mapError(err error) error {
	return errs.Map(err,
		errs.Mapping{Err: boinc.ErrWorkNotFound, Status: http.StatusNotFound},
		errs.Mapping{Err: boinc.ErrNotConnected, Status: http.StatusServiceUnavailable},
		errs.Mapping{Err: network.ErrNoAvailableNode, Status: http.StatusServiceUnavailable},
		errs.Mapping{Err: network.ErrNotInitialized, Status: http.StatusServiceUnavailable},
	)
}
