package main

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/adapters/postgres"
	"vrp-solver-service/internal/config"
	"vrp-solver-service/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, databaseURL, 2)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/problems.json")
	if err := initAndSeed(ctx, conn, seedPath); err != nil {
		log.WithError(err).Fatal("dbtool failed")
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string) error {
	log.Info("Initializing database schema...")
	if err := postgres.InitSchema(ctx, conn); err != nil {
		return err
	}
	log.Info("Schema ready.")

	log.WithField("path", seedPath).Info("Seeding problems...")
	n, err := postgres.SeedFromJSON(ctx, conn, seedPath)
	if err != nil {
		return err
	}
	log.WithField("problems", n).Info("Seeding complete.")

	return nil
}
