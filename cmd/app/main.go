package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinScope/internal/di"
	"FinScope/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("env=%s clickhouse=%t redis=%t kafka=%t", cfg.Environment, cfg.ClickHouse.Enabled, cfg.Redis.Enabled, cfg.Kafka.Enabled)

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
