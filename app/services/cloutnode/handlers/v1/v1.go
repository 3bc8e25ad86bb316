// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/cloutcontracts/cloutnet/app/services/cloutnode/handlers/v1/cachegrp"
	"github.com/cloutcontracts/cloutnet/app/services/cloutnode/handlers/v1/contractgrp"
	"github.com/cloutcontracts/cloutnet/app/services/cloutnode/handlers/v1/netgrp"
	"github.com/cloutcontracts/cloutnet/app/services/cloutnode/handlers/v1/workgrp"
	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/events"
	"github.com/cloutcontracts/cloutnet/foundation/network"
	"github.com/cloutcontracts/cloutnet/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Cache *cachedb.DB
	Core  *network.Core
	BOINC *boinc.Manager
	Evts  *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	cgh := cachegrp.Handlers{
		Log:   cfg.Log,
		Cache: cfg.Cache,
	}

	app.Handle(http.MethodGet, version, "/cache", cgh.Get)
	app.Handle(http.MethodPost, version, "/cache", cgh.Set)
	app.Handle(http.MethodDelete, version, "/cache", cgh.Clear)
	app.Handle(http.MethodGet, version, "/cache/stats", cgh.Stats)
	app.Handle(http.MethodGet, version, "/cache/keys", cgh.Keys)
	app.Handle(http.MethodDelete, version, "/cache/:key", cgh.Delete)
	app.Handle(http.MethodGet, version, "/cache/offline/:key", cgh.Offline)

	ngh := netgrp.Handlers{
		Log:  cfg.Log,
		Core: cfg.Core,
	}

	app.Handle(http.MethodPost, version, "/shards", ngh.ShardData)
	app.Handle(http.MethodPost, version, "/shards/reconstruct", ngh.ReconstructData)
	app.Handle(http.MethodGet, version, "/shards/:id", ngh.Shard)
	app.Handle(http.MethodGet, version, "/network/status", ngh.Status)
	app.Handle(http.MethodGet, version, "/network/nodes", ngh.Nodes)

	wgh := workgrp.Handlers{
		Log:   cfg.Log,
		BOINC: cfg.BOINC,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", wgh.Events)
	app.Handle(http.MethodPost, version, "/work", wgh.Submit)
	app.Handle(http.MethodGet, version, "/work", wgh.List)
	app.Handle(http.MethodPost, version, "/work/compile", wgh.Compile)
	app.Handle(http.MethodPost, version, "/work/verify", wgh.Verify)
	app.Handle(http.MethodGet, version, "/work/:id", wgh.Work)
	app.Handle(http.MethodGet, version, "/boinc/stats", wgh.Stats)
	app.Handle(http.MethodGet, version, "/boinc/projects", wgh.Projects)

	kgh := contractgrp.Handlers{
		Log:   cfg.Log,
		Cache: cfg.Cache,
		Core:  cfg.Core,
		BOINC: cfg.BOINC,
	}

	app.Handle(http.MethodPost, version, "/contracts/compile", kgh.Compile)
	app.Handle(http.MethodPost, version, "/contracts/deployments", kgh.AddDeployment)
	app.Handle(http.MethodGet, version, "/contracts/deployments/:hash", kgh.QueryDeployment)
	app.Handle(http.MethodGet, version, "/stats/network", kgh.NetworkStats)
}
