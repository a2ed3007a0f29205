package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cavtal/backend/internal/domain"
)

// Embedder produces the query vector used for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store retrieves reference passages from a pgvector-backed table. Passages
// are ingested offline; the store only reads.
type Store struct {
	db       *sqlx.DB
	embedder Embedder
}

// NewStore creates a pgvector passage store.
func NewStore(db *sqlx.DB, embedder Embedder) *Store {
	return &Store{
		db:       db,
		embedder: embedder,
	}
}

type passageRow struct {
	Content     string  `db:"content"`
	Page        int     `db:"page"`
	Category    string  `db:"category"`
	ProductCode *string `db:"product_code"`
}

// Search embeds the query and returns the k nearest passages by cosine
// distance, most similar first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrRetrievalFailure, err)
	}

	const stmt = `
		SELECT content, page, category, product_code
		FROM reference_passages
		ORDER BY embedding <=> $1
		LIMIT $2`

	var rows []passageRow
	if err := s.db.SelectContext(ctx, &rows, stmt, vectorLiteral(vector), k); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}

	passages := make([]domain.Passage, 0, len(rows))
	for _, row := range rows {
		p := domain.Passage{
			Text:     row.Content,
			Page:     row.Page,
			Category: row.Category,
		}
		if row.ProductCode != nil {
			p.Code = *row.ProductCode
		}
		passages = append(passages, p)
	}
	return passages, nil
}

// vectorLiteral renders a float slice in pgvector's input syntax, e.g.
// "[0.1,0.2,0.3]".
func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
