package main

import (
	"bridge4er_backend/internal/app"
	"bridge4er_backend/internal/config"
	"bridge4er_backend/pkg/configwatcher"
	"bridge4er_backend/pkg/logger"
	"flag"
	"log"
	"path/filepath"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "force database migrations on startup, even in release mode")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration completed, exiting")
		return
	}

	go configwatcher.WatchConfig(filepath.Join("configs", "config.yaml"), application.ApplyConfig)

	application.Run()
}
