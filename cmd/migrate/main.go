package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/leadflow/internal/config"
)

// leadflowTables are the tables created by the migrations directory.
var leadflowTables = []string{
	"campaign_enrollments",
	"campaigns",
	"communications",
	"conversation_messages",
	"conversations",
	"leads",
	"outbound_email_log",
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	listOnly := flag.Bool("list", false, "list leadflow tables and exit")
	flag.Parse()

	dir := "migrations"
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if *listOnly {
		if err := listTables(db); err != nil {
			log.Fatal(err)
		}
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		log.Fatal(err)
	}

	var okCount, errCount int
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		tx, err := db.Begin()
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.Exec(content); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("COMMIT ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Println("OK")
		okCount++
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func listTables(db *sql.DB) error {
	rows, err := db.Query(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename = ANY($1) ORDER BY tablename`,
		pq.Array(leadflowTables),
	)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		found[t] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, t := range leadflowTables {
		mark := "missing"
		if found[t] {
			mark = "ok"
		}
		fmt.Printf("  %-24s %s\n", t, mark)
	}
	fmt.Printf("Total: %d/%d tables\n", len(found), len(leadflowTables))
	return nil
}
