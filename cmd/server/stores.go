package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/adapters/geo"
	"vrp-solver-service/internal/adapters/memory"
	"vrp-solver-service/internal/adapters/postgres"
	"vrp-solver-service/internal/adapters/redisbus"
	"vrp-solver-service/internal/config"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/messaging"
	"vrp-solver-service/internal/platform/db"
	"vrp-solver-service/internal/ports"
)

const maxDBConns = 10

type stores struct {
	problems  ports.ProblemPort
	requests  ports.SolverRequestPort
	solutions ports.SolutionPort
	panels    ports.PanelStore
	paths     ports.PathCache

	db     *sql.DB
	redis  *redis.Client
	checks map[string]func(ctx context.Context) error
}

// openStores uses PostgreSQL when DATABASE_URL is set and in-memory stores
// seeded from SEED_PATH otherwise. Panels live in Redis when REDIS_URL is set
// so every gateway sees the same preferences.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{checks: make(map[string]func(ctx context.Context) error)}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, maxDBConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		s.db = conn
		s.problems = postgres.NewProblemStore(conn)
		s.requests = postgres.NewRequestStore(conn)
		s.solutions = postgres.NewSolutionStore(conn)
		s.paths = postgres.NewPathCache(conn)
		s.checks["postgres"] = conn.PingContext
	} else {
		problems, err := readSeed(cfg.SeedPath)
		if err != nil {
			return nil, err
		}
		log.WithField("problems", len(problems)).Warn("DATABASE_URL not set, using in-memory stores")
		s.problems = memory.NewProblemStore(problems...)
		s.requests = memory.NewRequestStore()
		s.solutions = memory.NewSolutionStore()
		s.paths = memory.NewPathCache()
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := redisbus.Connect(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
		s.panels = redisbus.NewPanelStore(client, redisbus.DefaultPrefix)
		s.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		s.panels = memory.NewPanelStore()
	}

	return s, nil
}

func (s *stores) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.WithError(err).Warn("close postgres")
		}
	}
}

// readSeed loads problems for the in-memory store. A missing file yields none.
func readSeed(path string) ([]domain.VrpProblem, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Warn("seed file not found, starting without problems")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %q: %w", path, err)
	}
	return domain.ParseProblems(raw)
}

// openTransport uses Redis when configured and the in-process broker otherwise,
// which only works when gateway and worker share the process.
func openTransport(cfg config.Config, s *stores) (messaging.Transport, error) {
	if s.redis != nil {
		return redisbus.NewTransport(s.redis, redisbus.DefaultPrefix), nil
	}
	if cfg.Role != config.RoleAll {
		return nil, fmt.Errorf("role %q needs REDIS_URL", cfg.Role)
	}
	return messaging.NewBroker(), nil
}

func newGeo(cfg config.Config, s *stores) (ports.GeoPort, error) {
	if strings.TrimSpace(cfg.ORSAPIKey) == "" {
		log.Warn("ORS_API_KEY not set, routing along straight lines")
		return geo.NewStraightLine(0), nil
	}
	ors, err := geo.NewORS(cfg.ORSAPIKey)
	if err != nil {
		return nil, err
	}
	return geo.NewCachedPaths(ors, s.paths), nil
}
