package main

import (
	"database/sql"
	"flag"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/logger"
	_ "github.com/lib/pq"

	"raffle-admin/internal/config"
)

// Applies the SQL files in -dir in name order. Only postgres is supported;
// AutoMigrate already creates the tables, these add the constraints gorm
// tags cannot express.
func main() {
	defer logger.Init("raffle-migrate", true, false, io.Discard).Close()

	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		logger.Fatalf("Migrations target postgres, DB_DRIVER is %s", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		logger.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			logger.Fatalf("Failed to read migration file: %v", err)
		}

		logger.Infof("Applying migration: %s", filepath.Base(file))
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			logger.Fatalf("Failed to apply migration %s: %v", filepath.Base(file), err)
		}
	}

	logger.Infof("Applied %d migrations", len(files))
}
