package training

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
)

// RunRepository handles training run database operations
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "training_run").Logger(),
	}
}

// CreateRun inserts a new training run record and returns its ID
func (r *RunRepository) CreateRun(symbol, strategy string, window, episodes int) (int64, error) {
	query := `
		INSERT INTO training_runs (symbol, strategy, window, episodes, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Exec(query,
		symbol,
		strategy,
		window,
		episodes,
		domain.RunStatusRunning,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create training run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	r.log.Info().
		Int64("run_id", id).
		Str("symbol", symbol).
		Str("strategy", strategy).
		Msg("Training run created")

	return id, nil
}

// FinishRun marks a run as completed or failed
func (r *RunRepository) FinishRun(runID int64, status string) error {
	query := `UPDATE training_runs SET status = ?, finished_at = ? WHERE id = ?`

	_, err := r.db.Exec(query, status, time.Now().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("failed to finish training run: %w", err)
	}
	return nil
}

// GetRun retrieves a training run by ID, or nil when not found
func (r *RunRepository) GetRun(runID int64) (*domain.TrainingRun, error) {
	query := `
		SELECT id, symbol, strategy, window, episodes, status, started_at, finished_at
		FROM training_runs WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves training runs, most recent first
func (r *RunRepository) ListRuns(limit int) ([]domain.TrainingRun, error) {
	query := `
		SELECT id, symbol, strategy, window, episodes, status, started_at, finished_at
		FROM training_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.TrainingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training runs: %w", err)
	}
	return runs, nil
}

// SaveEpisode inserts one episode result for a run
func (r *RunRepository) SaveEpisode(runID int64, result domain.EpisodeResult) error {
	query := `
		INSERT INTO episodes
		(run_id, episode, total_reward, portfolio_value, trades, mean_loss, max_loss, learn_steps, epsilon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		runID,
		result.Episode,
		result.TotalReward,
		result.PortfolioValue,
		result.Trades,
		result.MeanLoss,
		result.MaxLoss,
		result.LearnSteps,
		result.Epsilon,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save episode: %w", err)
	}
	return nil
}

// ListEpisodes retrieves episode results for a run in episode order
func (r *RunRepository) ListEpisodes(runID int64) ([]domain.EpisodeResult, error) {
	query := `
		SELECT episode, total_reward, portfolio_value, trades, mean_loss, max_loss, learn_steps, epsilon
		FROM episodes WHERE run_id = ? ORDER BY episode
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var results []domain.EpisodeResult
	for rows.Next() {
		var e domain.EpisodeResult
		if err := rows.Scan(&e.Episode, &e.TotalReward, &e.PortfolioValue, &e.Trades,
			&e.MeanLoss, &e.MaxLoss, &e.LearnSteps, &e.Epsilon); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		results = append(results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episodes: %w", err)
	}
	return results, nil
}

// SaveCheckpoint upserts the latest checkpoint blob for a run
func (r *RunRepository) SaveCheckpoint(runID int64, episode int, blob []byte) error {
	query := `
		INSERT INTO checkpoints (run_id, episode, blob, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET episode = excluded.episode, blob = excluded.blob, updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, runID, episode, blob, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint retrieves the latest checkpoint blob for a run, or nil when
// none has been saved yet
func (r *RunRepository) GetCheckpoint(runID int64) ([]byte, error) {
	query := `SELECT blob FROM checkpoints WHERE run_id = ?`

	var blob []byte
	err := r.db.QueryRow(query, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return blob, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*domain.TrainingRun, error) {
	var run domain.TrainingRun
	var startedAt string
	var finishedAt sql.NullString

	if err := s.Scan(&run.ID, &run.Symbol, &run.Strategy, &run.Window, &run.Episodes,
		&run.Status, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = ts
	}
	if finishedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			run.FinishedAt = &ts
		}
	}
	return &run, nil
}
