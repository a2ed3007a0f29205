package catalog

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cavtal/backend/internal/domain"
)

// PostgresSource loads the product catalog from the product_catalog table.
type PostgresSource struct {
	db *sqlx.DB
}

// NewPostgresSource creates a Postgres-backed catalog source.
func NewPostgresSource(db *sqlx.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Load returns every catalog row in insertion order. Rows with an empty name
// or code are filtered out downstream by the matcher, not here.
func (s *PostgresSource) Load(ctx context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := s.db.SelectContext(ctx, &items,
		`SELECT itemname, nnc_id FROM product_catalog ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return items, nil
}

// Replace swaps the stored catalog for the given items in one transaction.
// Used by the ingest command after parsing a new catalog workbook.
func (s *PostgresSource) Replace(ctx context.Context, items []domain.CatalogItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_catalog`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	if len(items) > 0 {
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO product_catalog (itemname, nnc_id) VALUES (:itemname, :nnc_id)`,
			items)
		if err != nil {
			return fmt.Errorf("insert catalog rows: %w", err)
		}
	}

	return tx.Commit()
}
