package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/cloutcontracts/cloutnet/app/services/cloutnode/handlers"
	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror/disk"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror/memory"
	"github.com/cloutcontracts/cloutnet/foundation/events"
	"github.com/cloutcontracts/cloutnet/foundation/logger"
	"github.com/cloutcontracts/cloutnet/foundation/network"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("CLOUTNODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CORSOrigin      string        `conf:"default:*"`
		}
		Cache struct {
			MaxEntries    int           `conf:"default:1000"`
			DefaultTTL    time.Duration `conf:"default:1h"`
			SweepInterval time.Duration `conf:"default:5m"`
			MirrorFolder  string        `conf:"default:zcache/offline/"`
			MemoryMirror  bool          `conf:"default:false"`
		}
		Network struct {
			ShardSize         int    `conf:"default:65536"`
			ReplicationFactor int    `conf:"default:3"`
			Checksum          string `conf:"default:sha256"`
			NodeFile          string `conf:"help:YAML node list used instead of the seed nodes"`
		}
		BOINC struct {
			Capability      string        `conf:"default:compute"`
			CompilePriority int           `conf:"default:5"`
			CompileDuration time.Duration `conf:"default:3s"`
			VerifyPriority  int           `conf:"default:3"`
			VerifyDuration  time.Duration `conf:"default:5s"`
			LoadPerWork     float64       `conf:"default:0"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "clout contracts decentralized compute node",
		},
	}

	const prefix = "CLOUTNET"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Event Support

	// The foundation packages accept a function of this signature to allow
	// the application to log. The raw messages are also sent to any
	// websocket client connected through the events package.
	evts := events.NewEvents()
	ev := func(subsystem string) func(v string, args ...any) {
		logf := logger.EvHandler(log, subsystem)
		return func(v string, args ...any) {
			logf(v, args...)
			evts.Logf(v, args...)
		}
	}

	// =========================================================================
	// Cache Support

	// Values stored for offline use go to disk unless the node is asked to
	// keep them in memory.
	var mr mirror.Mirror = memory.New()
	if !cfg.Cache.MemoryMirror {
		dsk, err := disk.New(cfg.Cache.MirrorFolder)
		if err != nil {
			return fmt.Errorf("opening offline mirror: %w", err)
		}
		defer dsk.Close()
		mr = dsk
	}

	cache := cachedb.New(cachedb.Config{
		MaxEntries:    cfg.Cache.MaxEntries,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Mirror:        mr,
		EvHandler:     ev("cachedb"),
	})
	defer cache.Shutdown()

	// =========================================================================
	// Network Support

	var discovery network.Discovery
	if cfg.Network.NodeFile != "" {
		discovery = network.FileDiscovery{Path: cfg.Network.NodeFile}
	}

	core, err := network.New(network.Config{
		ShardSize:         cfg.Network.ShardSize,
		ReplicationFactor: cfg.Network.ReplicationFactor,
		Checksum:          cfg.Network.Checksum,
		Discovery:         discovery,
		EvHandler:         ev("network"),
	})
	if err != nil {
		return fmt.Errorf("constructing network core: %w", err)
	}

	if err := core.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initializing network core: %w", err)
	}
	defer core.Shutdown()

	ns := core.NetworkStatus()
	for _, node := range core.Nodes() {
		log.Infow("startup", "status", "node registered", "node", node.ID, "capabilities", node.Capabilities, "load", node.Load, "nodestatus", node.Status)
	}
	evts.Send(events.New(events.TypeNetworkReady, "network initialized", ns))

	// =========================================================================
	// BOINC Support

	mgr, err := boinc.New(boinc.Config{
		Core:            core,
		Capability:      cfg.BOINC.Capability,
		CompilePriority: cfg.BOINC.CompilePriority,
		CompileDuration: cfg.BOINC.CompileDuration,
		VerifyPriority:  cfg.BOINC.VerifyPriority,
		VerifyDuration:  cfg.BOINC.VerifyDuration,
		LoadPerWork:     cfg.BOINC.LoadPerWork,
		EvHandler:       ev("boinc"),
	})
	if err != nil {
		return fmt.Errorf("constructing boinc manager: %w", err)
	}

	// Forward every completion to the event stream. The channel is closed
	// when the manager shuts down.
	completions := mgr.Subscribe("events")
	bridge := make(chan struct{})
	go func() {
		defer close(bridge)
		for c := range completions {
			evts.Send(events.New(events.TypeWorkCompleted, fmt.Sprintf("work %s completed on %s", c.WorkID, c.NodeID), c))
		}
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, core)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Origin:   cfg.Web.CORSOrigin,
		Cache:    cache,
		Core:     core,
		BOINC:    mgr,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Stop dispatching and wait for the completion bridge to drain.
		log.Infow("shutdown", "status", "shutdown boinc manager")
		mgr.Shutdown()
		<-bridge

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Send(events.New(events.TypeNetworkDown, "network shutting down", nil))
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
