package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"smsgateway/internal/config"
	"smsgateway/internal/db"
	"smsgateway/internal/logger"

	"github.com/jmoiron/sqlx"
)

const downMarker = "-- +migrate Down"

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNNN_name.sql files")
	down := flag.Bool("down", false, "roll back the most recently applied migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logg := logger.New(cfg.LogLevel)
	database, err := db.Connect(cfg.DatabaseURL, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatalf("failed to ensure schema_migrations: %v", err)
	}

	runner := db.NewTxRunner(database)
	if *down {
		var last string
		if err := database.GetContext(ctx, &last, `SELECT COALESCE(MAX(filename), '') FROM schema_migrations`); err != nil {
			log.Fatalf("failed to read migration state: %v", err)
		}
		if last == "" {
			logg.Info("nothing to roll back")
			return
		}
		content, err := os.ReadFile(filepath.Join(*dir, last))
		if err != nil {
			log.Fatalf("failed to read %s: %v", last, err)
		}
		_, downSQL := sections(string(content))
		err = runner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := execAll(ctx, tx, downSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE filename = $1`, last)
			return err
		})
		if err != nil {
			log.Fatalf("failed to roll back %s: %v", last, err)
		}
		logg.Info("rolled back migration", "file", last)
		return
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatalf("failed to read migrations: %v", err)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatalf("failed to read migration state: %v", err)
		}
		if exists {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", filename, err)
		}
		upSQL, _ := sections(string(content))
		err = runner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := execAll(ctx, tx, upSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename)
			return err
		})
		if err != nil {
			log.Fatalf("failed to apply %s: %v", filename, err)
		}
		applied++
		logg.Info("applied migration", "file", filename)
	}
	logg.Info("migrations up to date", "applied", applied)
}

// sections splits a migration file into its up and down halves.
func sections(content string) (up, down string) {
	up, down, _ = strings.Cut(content, downMarker)
	return up, down
}

func execAll(ctx context.Context, tx *sqlx.Tx, sqlText string) error {
	for _, stmt := range splitSQL(sqlText) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stmt))
		}
	}
	return nil
}

// splitSQL breaks a script into statements on lines ending in a semicolon.
// Comment lines are dropped.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
