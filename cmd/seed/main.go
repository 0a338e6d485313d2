package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database, log); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed", "password", db.SeedPassword)
}
