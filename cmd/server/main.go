package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vrp-solver-service/internal/adapters/redisbus"
	"vrp-solver-service/internal/api"
	"vrp-solver-service/internal/broadcast"
	"vrp-solver-service/internal/config"
	"vrp-solver-service/internal/messaging"
	"vrp-solver-service/internal/pipeline"
	"vrp-solver-service/internal/platform/metrics"
	"vrp-solver-service/internal/platform/obs"
	"vrp-solver-service/internal/recovery"
	"vrp-solver-service/internal/repository"
	"vrp-solver-service/internal/solver"
	"vrp-solver-service/internal/solver/heuristics"
)

const shutdownTimeout = 30 * time.Second

// main is the application composition root.
// It wires concrete adapters (PostgreSQL or memory, Redis or in-process
// messaging, ORS or straight-line routing) behind ports and starts the
// roles selected by ROLE.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := obs.ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope, scopeCloser := metrics.NewRootScope("vrp_solver", nil, time.Second)
	defer scopeCloser.Close()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	geoPort, err := newGeo(cfg, stores)
	if err != nil {
		return err
	}

	transport, err := openTransport(cfg, stores)
	if err != nil {
		return err
	}

	bus := messaging.NewRegistry(transport, messaging.QueueOptions{
		PollInterval: cfg.Messaging.PollInterval,
		Scope:        scope,
	})

	solvers := solver.NewRegistry()
	heuristics.Register(solvers)

	deps := api.Deps{Checks: stores.checks}

	var (
		manager   *solver.Manager
		worker    *pipeline.Worker
		scheduler *recovery.Scheduler
	)

	if cfg.Role.RunsWorker() {
		manager = solver.NewManager(solvers, solver.Config{TimeLimit: cfg.Solver.TimeLimit}, scope)
		worker = pipeline.NewWorker(bus, manager, cfg.Solver.MaxConcurrent)
		worker.Register(bus)
	}

	if cfg.Role.RunsGateway() {
		repo := repository.NewSolverRepository(stores.problems, stores.requests, stores.solutions, geoPort)
		service := solver.NewService(repo, bus, bus, solvers)
		hub := broadcast.NewHub(stores.panels, geoPort, scope)
		pipeline.NewGateway(service, bus, bus, hub).Register()

		var locker recovery.Locker
		if stores.redis != nil {
			locker = redisbus.NewLocker(stores.redis, redisbus.DefaultPrefix)
		}
		scheduler = recovery.NewScheduler(locker, scope)
		if err := scheduler.Register(recovery.Sweeps(stores.requests, cfg.Recovery, cfg.Solver.TimeLimit)...); err != nil {
			return err
		}

		deps.Problems = stores.problems
		deps.Solver = service
		deps.Panels = stores.panels
		deps.Hub = hub
	}

	if err := bus.Start(ctx); err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": srv.Addr, "role": cfg.Role}).Info("Server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	log.Info("Shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	if manager != nil {
		// runs emit their final snapshot while the bus is still up
		manager.Destroy()
		worker.Wait()
	}
	bus.Stop()
	return err
}
