package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/aspect-export/internal/pkg/logger"
)

func main() {
	dir := flag.String("dir", "migrations", "directory containing numbered .sql files")
	list := flag.Bool("list", false, "list the engine's tables instead of migrating")
	flag.Parse()

	log := logger.New(os.Stderr, logger.INFO)

	if err := run(*dir, *list, log); err != nil {
		log.Error("migrate: failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(dir string, listOnly bool, log *logger.Logger) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if listOnly {
		return listTables(db, log)
	}
	return applyMigrations(db, dir, log)
}

func listTables(db *sql.DB, log *logger.Logger) error {
	rows, err := db.Query(`SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename LIKE 'aspect_%'
		ORDER BY tablename`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for _, name := range tables {
		fmt.Println(name)
	}
	log.Info("migrate: tables listed", "count", len(tables))
	return nil
}

// applyMigrations runs every .sql file in lexical order, one transaction per
// file. Files are idempotent (IF NOT EXISTS), so reruns are safe.
func applyMigrations(db *sql.DB, dir string, log *logger.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin %s: %w", name, err)
		}
		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}

		log.Info("migrate: applied", "file", name)
		applied++
	}

	log.Info("migrate: complete", "applied", applied, "total", len(files))
	return nil
}
