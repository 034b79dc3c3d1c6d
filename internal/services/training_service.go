package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/config"
	"github.com/aristath/deep-trader/internal/domain"
	"github.com/aristath/deep-trader/internal/events"
	"github.com/aristath/deep-trader/internal/modules/dqn"
	"github.com/aristath/deep-trader/internal/modules/history"
	"github.com/aristath/deep-trader/internal/modules/training"
)

// TrainingService orchestrates training runs and evaluations: it resolves
// price data, builds the agent from configuration, drives the trainer and
// persists results and checkpoints.
type TrainingService struct {
	cfg     *config.Config
	history *history.Service
	runs    *training.RunRepository
	events  *events.Manager
	log     zerolog.Logger
}

// NewTrainingService creates a new training service
func NewTrainingService(
	cfg *config.Config,
	historyService *history.Service,
	runRepo *training.RunRepository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *TrainingService {
	return &TrainingService{
		cfg:     cfg,
		history: historyService,
		runs:    runRepo,
		events:  eventManager,
		log:     log.With().Str("service", "training").Logger(),
	}
}

// agentConfig builds the agent hyperparameters from application config.
func (s *TrainingService) agentConfig(strategy domain.Strategy) dqn.Config {
	return dqn.Config{
		Strategy:     strategy,
		Window:       s.cfg.Window,
		Capacity:     s.cfg.ReplayCapacity,
		BatchSize:    s.cfg.BatchSize,
		Gamma:        s.cfg.Gamma,
		Epsilon:      s.cfg.Epsilon,
		EpsilonDecay: s.cfg.EpsilonDecay,
		EpsilonMin:   s.cfg.EpsilonMin,
		SyncEvery:    s.cfg.TargetSyncEvery,
		LearningRate: s.cfg.LearningRate,
		Seed:         s.cfg.Seed,
	}
}

// RunTraining executes one full training run over a symbol's price history.
// Each episode's metrics and the latest checkpoint are persisted as they
// complete, so an interrupted run recovers from its last checkpoint.
func (s *TrainingService) RunTraining(ctx context.Context, symbol string) (*domain.TrainingRun, error) {
	series, err := s.history.GetSeries(symbol)
	if err != nil {
		return nil, err
	}

	strategy := domain.ParseStrategy(s.cfg.Strategy)
	agent, err := dqn.New(s.agentConfig(strategy), s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}

	runID, err := s.runs.CreateRun(symbol, strategy.String(), s.cfg.Window, s.cfg.Episodes)
	if err != nil {
		return nil, err
	}

	s.events.Emit(events.TrainingRunStarted, "training", map[string]interface{}{
		"run_id":   runID,
		"symbol":   symbol,
		"strategy": strategy.String(),
		"episodes": s.cfg.Episodes,
	})

	trainer := training.NewTrainer(agent, s.cfg.Window, s.events, s.log)

	hook := func(result domain.EpisodeResult, checkpoint []byte) error {
		if err := s.runs.SaveEpisode(runID, result); err != nil {
			return err
		}
		if err := s.runs.SaveCheckpoint(runID, result.Episode, checkpoint); err != nil {
			return err
		}
		return nil
	}

	if err := trainer.Train(ctx, history.Closes(series), s.cfg.Episodes, hook); err != nil {
		if finishErr := s.runs.FinishRun(runID, domain.RunStatusFailed); finishErr != nil {
			s.log.Error().Err(finishErr).Int64("run_id", runID).Msg("Failed to mark run as failed")
		}
		s.events.EmitError("training", err, map[string]interface{}{"run_id": runID})
		return nil, fmt.Errorf("training run %d failed: %w", runID, err)
	}

	if err := s.runs.FinishRun(runID, domain.RunStatusCompleted); err != nil {
		return nil, err
	}

	s.events.Emit(events.TrainingRunCompleted, "training", map[string]interface{}{
		"run_id": runID,
		"symbol": symbol,
	})

	return s.runs.GetRun(runID)
}

// Evaluate replays a completed run's checkpoint deterministically over a
// symbol's series and returns a report with the per-step trace.
func (s *TrainingService) Evaluate(runID int64, symbol string) (*training.Report, error) {
	run, err := s.runs.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("training run %d not found", runID)
	}

	blob, err := s.runs.GetCheckpoint(runID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("training run %d has no checkpoint yet", runID)
	}

	if symbol == "" {
		symbol = run.Symbol
	}
	series, err := s.history.GetSeries(symbol)
	if err != nil {
		return nil, err
	}

	cfg := s.agentConfig(domain.ParseStrategy(run.Strategy))
	cfg.Window = run.Window
	cfg.Epsilon = 0 // evaluation never explores

	agent, err := dqn.New(cfg, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}
	if err := agent.ImportParameters(blob); err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for run %d: %w", runID, err)
	}

	evaluator := training.NewEvaluator(agent, run.Window, s.log)
	result, err := evaluator.Evaluate(symbol, series)
	if err != nil {
		return nil, err
	}

	report := training.BuildReport(result, series)

	s.events.Emit(events.EvaluationCompleted, "training", map[string]interface{}{
		"run_id":       runID,
		"symbol":       symbol,
		"total_profit": report.TotalProfit,
		"trades":       report.Trades,
	})

	return &report, nil
}
