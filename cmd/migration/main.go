package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq"

	"github.com/thrillee/mnpgateway/db"
)

type Config struct {
	DatabaseURL string        `envconfig:"DATABASE_URL"      required:"true"`
	Timeout     time.Duration `envconfig:"MIGRATION_TIMEOUT" default:"5m"`
}

// Usage: migration [-command up|down|status|version|up-to|down-to|redo|reset] [version]
func main() {
	command := flag.String("command", "up", "goose command")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Migrations ship inside the binary; no working-directory assumptions.
	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set goose dialect: %v", err)
	}

	log.Printf("goose %s %v (embedded %s)", *command, flag.Args(), db.MigrationsDir)
	if err := goose.RunContext(ctx, *command, conn, db.MigrationsDir, flag.Args()...); err != nil {
		log.Fatalf("goose %s failed: %v", *command, err)
	}
	log.Println("Migrations completed successfully!")
}
