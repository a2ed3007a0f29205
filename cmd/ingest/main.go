package main

import (
	"context"
	"flag"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/cavtal/backend/config"
	"github.com/cavtal/backend/internal/infrastructure/catalog"
)

// Loads a published eligible-product workbook into the product_catalog table,
// replacing whatever revision is currently stored.
func main() {
	var (
		path      = flag.String("file", "", "path to the catalog .xlsx workbook (required)")
		sheet     = flag.String("sheet", "", "worksheet name (defaults to the published layout)")
		headerRow = flag.Int("header-row", 0, "1-based header row (defaults to the published layout)")
		dryRun    = flag.Bool("dry-run", false, "parse and report without writing to the database")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("usage: ingest -file catalog.xlsx [-sheet name] [-header-row n] [-dry-run]")
	}

	ctx := context.Background()

	source := catalog.NewExcelSource(*path, *sheet, *headerRow)
	items, err := source.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to parse workbook: %v", err)
	}
	log.Printf("Parsed %d catalog rows from %s", len(items), *path)

	if *dryRun {
		for i, item := range items {
			if i >= 10 {
				log.Printf("... and %d more", len(items)-10)
				break
			}
			log.Printf("  %-40s %s", item.ItemName, item.Code)
		}
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("pgx", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := catalog.NewPostgresSource(db).Replace(ctx, items); err != nil {
		log.Fatalf("Failed to replace catalog: %v", err)
	}
	log.Printf("Catalog replaced: %d rows", len(items))
}
