package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dealprobe/dealprobe/pkg/sim"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists runs and turns to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ sim.RunStore = &SQLiteStore{}

// NewSQLiteStore opens (and if necessary creates) the database at dsn
// and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("sqlite store ready", "dsn", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, scenarioID, personaID, variantName string, seed int64) (sim.Run, error) {
	run := newRun(scenarioID, personaID, variantName, seed)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario_id, persona_id, variant_name, seed, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.ScenarioID, run.PersonaID, run.VariantName, run.Seed, run.StartedAt)
	if err != nil {
		slog.Error("sqlite CreateRun failed", "error", err, "scenario", scenarioID)
		return sim.Run{}, fmt.Errorf("failed to insert run for scenario %s: %w", scenarioID, err)
	}

	return run, nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, run sim.Run, turn sim.Turn) (sim.Run, error) {
	updated := run.WithTurn(turn)
	idx := len(updated.Turns) - 1

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (run_id, idx, speaker, content, latency_ms, tokens, cost_usd) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, idx, string(turn.Speaker), turn.Content, turn.LatencyMs, turn.Tokens, turn.CostUSD)
	if err != nil {
		slog.Error("sqlite AppendTurn failed", "error", err, "run", run.ID, "idx", idx)
		return sim.Run{}, fmt.Errorf("failed to insert turn %d for run %s: %w", idx, run.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET total_cost_usd = ? WHERE id = ?`,
		updated.TotalCostUSD, run.ID)
	if err != nil {
		return sim.Run{}, fmt.Errorf("failed to update cost for run %s: %w", run.ID, err)
	}

	return updated, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run sim.Run, outcome sim.Outcome, reason string) (sim.Run, error) {
	updated := run.WithOutcome(outcome, reason, time.Now().UTC())

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, outcome_reason = ?, completed = 1, completed_at = ?, total_cost_usd = ?
		 WHERE id = ? AND completed = 0`,
		string(updated.Outcome), updated.OutcomeReason, updated.CompletedAt, updated.TotalCostUSD, run.ID)
	if err != nil {
		slog.Error("sqlite CompleteRun failed", "error", err, "run", run.ID)
		return sim.Run{}, fmt.Errorf("failed to complete run %s: %w", run.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return sim.Run{}, fmt.Errorf("failed to check completion of run %s: %w", run.ID, err)
	}
	if affected == 0 {
		return sim.Run{}, fmt.Errorf("run '%s' is already completed or unknown", run.ID)
	}

	return updated, nil
}

// GetRun loads a run snapshot, including its turns, by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (sim.Run, error) {
	var run sim.Run
	var completed int
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, persona_id, variant_name, seed, total_cost_usd, outcome, outcome_reason, completed, started_at, completed_at
		 FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.ScenarioID, &run.PersonaID, &run.VariantName, &run.Seed,
			&run.TotalCostUSD, &run.Outcome, &run.OutcomeReason, &completed, &run.StartedAt, &completedAt)
	if err != nil {
		return sim.Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	run.Completed = completed != 0
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, content, latency_ms, tokens, cost_usd FROM turns WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return sim.Run{}, fmt.Errorf("failed to load turns for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t sim.Turn
		if err := rows.Scan(&t.Speaker, &t.Content, &t.LatencyMs, &t.Tokens, &t.CostUSD); err != nil {
			return sim.Run{}, fmt.Errorf("failed to scan turn row for run %s: %w", id, err)
		}
		run.Turns = append(run.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return sim.Run{}, fmt.Errorf("failed to iterate turn rows for run %s: %w", id, err)
	}

	return run, nil
}
