package s0_data

import (
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fingear/internal/contracts"
)

// Repository reads screening inputs from PostgreSQL
// ⭐ SSOT: contracts.MarketDataSource 의 DB 구현은 여기서만
type Repository struct {
	db *pgxpool.Pool
}

var _ contracts.MarketDataSource = (*Repository)(nil)

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// nullFloat converts a nullable column to NaN when absent
func nullFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// floatParam converts NaN back to SQL NULL
func floatParam(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func notFound(what, symbol string) error {
	return fmt.Errorf("%s %s: %w", what, symbol, contracts.ErrNotFound)
}

func wrapQueryErr(what, symbol string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(what, symbol)
	}
	return fmt.Errorf("query %s %s: %w", what, symbol, err)
}
