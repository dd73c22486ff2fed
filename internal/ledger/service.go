// Package ledger persists allocation runs and per-project rewards in
// Postgres, and consolidates rewards across algorithms and periods into a
// single payout table per round.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fundgraph/fundgraph/pkg/engine"
)

// Service provides run and reward persistence backed by Postgres.
type Service struct {
	db *sql.DB
}

// NewService creates a new ledger Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// RunRow represents an allocation run record from the database.
type RunRow struct {
	ID        string
	Round     string
	Period    string
	Algorithm string
	Budget    float64
	Currency  string
	Funded    int
	CreatedAt time.Time
}

// RewardRow represents a single project's reward within a run.
type RewardRow struct {
	ID        string
	RunID     string
	ProjectID string
	Name      string
	Score     float64
	Amount    float64
	CreatedAt time.Time
}

// ConsolidatedReward is a project's total across every run in a round,
// summed over algorithms and periods.
type ConsolidatedReward struct {
	ProjectID string
	Name      string
	Amount    float64
	RunCount  int
}

// RecordRun stores an allocation result and its rewards.
// Re-recording the same run ID replaces its rewards, so a rerun of the
// same period and algorithm stays idempotent.
func (s *Service) RecordRun(ctx context.Context, res *engine.AllocationResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, round, period, algorithm, budget, currency, funded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		   SET budget = EXCLUDED.budget,
		       funded = EXCLUDED.funded,
		       created_at = EXCLUDED.created_at`,
		res.RunID, res.Round, res.Period, res.Algorithm,
		res.Budget, res.Currency, len(res.Rewards), res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rewards WHERE run_id = $1`, res.RunID); err != nil {
		return fmt.Errorf("clear rewards for run %s: %w", res.RunID, err)
	}

	for _, r := range res.Rewards {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rewards (run_id, project_id, name, score, amount)
			 VALUES ($1, $2, $3, $4, $5)`,
			res.RunID, r.ProjectID, r.ProjectName, r.Score, r.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert reward %s: %w", r.ProjectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record run: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (*RunRow, error) {
	r := &RunRow{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, round, period, algorithm, budget, currency, funded, created_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Round, &r.Period, &r.Algorithm, &r.Budget, &r.Currency, &r.Funded, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns all runs for a round, newest first.
func (s *Service) ListRuns(ctx context.Context, round string) ([]RunRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, round, period, algorithm, budget, currency, funded, created_at
		 FROM runs WHERE round = $1 ORDER BY created_at DESC`,
		round,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.Round, &r.Period, &r.Algorithm, &r.Budget, &r.Currency, &r.Funded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRewards returns the rewards of a run, largest first.
func (s *Service) ListRewards(ctx context.Context, runID string) ([]RewardRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, project_id, name, score, amount, created_at
		 FROM rewards WHERE run_id = $1 ORDER BY amount DESC, project_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []RewardRow
	for rows.Next() {
		var r RewardRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.ProjectID, &r.Name, &r.Score, &r.Amount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// Consolidate sums each project's rewards across all runs in a round.
// When period is non-empty, only runs for that period are included.
func (s *Service) Consolidate(ctx context.Context, round, period string) ([]ConsolidatedReward, error) {
	query := `SELECT rw.project_id, MAX(rw.name), SUM(rw.amount), COUNT(DISTINCT rw.run_id)
	          FROM rewards rw
	          JOIN runs ru ON ru.id = rw.run_id
	          WHERE ru.round = $1`
	args := []any{round}
	if period != "" {
		query += ` AND ru.period = $2`
		args = append(args, period)
	}
	query += ` GROUP BY rw.project_id ORDER BY SUM(rw.amount) DESC, rw.project_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("consolidate round %s: %w", round, err)
	}
	defer rows.Close()

	var out []ConsolidatedReward
	for rows.Next() {
		var c ConsolidatedReward
		if err := rows.Scan(&c.ProjectID, &c.Name, &c.Amount, &c.RunCount); err != nil {
			return nil, fmt.Errorf("scan consolidated reward: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
