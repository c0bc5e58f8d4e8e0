package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/hatchboard/backend/internal/config"
	"github.com/hatchboard/backend/internal/server"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	env := config.LoadEnv()

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg, env); err != nil {
		os.Exit(1)
	}
}
