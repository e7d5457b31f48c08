package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fingear/internal/contracts"
)

// Repository handles screening report persistence
// ⭐ SSOT: 스크리닝 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReport writes the run, its results and exclusions in one transaction
func (r *Repository) SaveReport(ctx context.Context, report *contracts.ScreeningReport) error {
	if report.RunID == "" {
		return fmt.Errorf("save report: empty run id")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO selection.screening_runs (
			run_id, run_date, config_hash, universe_count, result_count, exclusion_count, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		report.RunID, report.Date, report.ConfigHash, report.UniverseSize,
		len(report.Results), len(report.Exclusions), report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert screening run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range report.Results {
		details, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result %s: %w", res.Symbol, err)
		}

		var fundamental, strength float64
		if res.Fundamental != nil {
			fundamental = res.Fundamental.Composite
		}
		if res.Flow != nil {
			strength = res.Flow.Strength
		}
		var technical *float64
		if res.Technical != nil && !res.Technical.Insufficient {
			score := res.Technical.Score
			technical = &score
		}

		batch.Queue(`
			INSERT INTO selection.screening_results (
				run_id, stock_code, rank, fundamental_score, flow_strength,
				technical_score, signal, state, details
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			report.RunID, res.Symbol, res.Rank, fundamental, strength,
			technical, string(res.Signal), string(res.State), details,
		)
	}

	for _, ex := range report.Exclusions {
		var trace []byte
		if rec, ok := report.Trace[ex.Symbol]; ok {
			trace, err = json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal trace %s: %w", ex.Symbol, err)
			}
		}

		batch.Queue(`
			INSERT INTO selection.screening_exclusions (
				run_id, stock_code, stage, reason, detail, trace
			) VALUES ($1, $2, $3, $4, $5, $6)
		`,
			report.RunID, ex.Symbol, string(ex.Stage), ex.Reason, ex.Detail, trace,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert report row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LatestReport loads the most recent run
func (r *Repository) LatestReport(ctx context.Context) (*contracts.ScreeningReport, error) {
	return r.loadRun(ctx, `
		SELECT run_id, run_date, config_hash, universe_count, duration_ms
		FROM selection.screening_runs
		ORDER BY run_date DESC, created_at DESC
		LIMIT 1
	`)
}

// ReportByDate loads the latest run for one date
func (r *Repository) ReportByDate(ctx context.Context, date time.Time) (*contracts.ScreeningReport, error) {
	return r.loadRun(ctx, `
		SELECT run_id, run_date, config_hash, universe_count, duration_ms
		FROM selection.screening_runs
		WHERE run_date = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, date)
}

// PurgeBefore deletes runs older than cutoff (results/exclusions cascade)
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM selection.screening_runs WHERE run_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge screening runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) loadRun(ctx context.Context, query string, args ...interface{}) (*contracts.ScreeningReport, error) {
	report := &contracts.ScreeningReport{
		Results:    []contracts.ScreeningResult{},
		Exclusions: []contracts.Exclusion{},
		Trace:      make(map[string]contracts.ScreeningResult),
	}

	var durationMS int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&report.RunID, &report.Date, &report.ConfigHash, &report.UniverseSize, &durationMS,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("screening report: %w", contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screening run: %w", err)
	}
	report.Duration = time.Duration(durationMS) * time.Millisecond

	if err := r.loadResults(ctx, report); err != nil {
		return nil, err
	}
	if err := r.loadExclusions(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Repository) loadResults(ctx context.Context, report *contracts.ScreeningReport) error {
	rows, err := r.pool.Query(ctx, `
		SELECT details
		FROM selection.screening_results
		WHERE run_id = $1
		ORDER BY rank ASC, stock_code ASC
	`, report.RunID)
	if err != nil {
		return fmt.Errorf("failed to query screening results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var details []byte
		if err := rows.Scan(&details); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		var res contracts.ScreeningResult
		if err := json.Unmarshal(details, &res); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
		report.Results = append(report.Results, res)
		report.Trace[res.Symbol] = res
	}
	return rows.Err()
}

func (r *Repository) loadExclusions(ctx context.Context, report *contracts.ScreeningReport) error {
	rows, err := r.pool.Query(ctx, `
		SELECT stock_code, stage, reason, detail, trace
		FROM selection.screening_exclusions
		WHERE run_id = $1
	`, report.RunID)
	if err != nil {
		return fmt.Errorf("failed to query screening exclusions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ex    contracts.Exclusion
			stage string
			trace []byte
		)
		if err := rows.Scan(&ex.Symbol, &stage, &ex.Reason, &ex.Detail, &trace); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		ex.Stage = contracts.Stage(stage)
		report.Exclusions = append(report.Exclusions, ex)

		if len(trace) > 0 {
			var rec contracts.ScreeningResult
			if err := json.Unmarshal(trace, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal trace: %w", err)
			}
			report.Trace[ex.Symbol] = rec
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	contracts.SortExclusions(report.Exclusions)
	return nil
}
