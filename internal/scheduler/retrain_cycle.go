package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/services"
)

// RetrainCycleJob re-trains the agent on fresh price history.
// Scheduled nightly after market close so each day's new closes are folded
// into the next run.
type RetrainCycleJob struct {
	log             zerolog.Logger
	trainingService *services.TrainingService
	symbols         []string
}

// NewRetrainCycleJob creates a new retrain cycle job
func NewRetrainCycleJob(trainingService *services.TrainingService, symbols []string, log zerolog.Logger) *RetrainCycleJob {
	return &RetrainCycleJob{
		log:             log.With().Str("job", "retrain_cycle").Logger(),
		trainingService: trainingService,
		symbols:         symbols,
	}
}

// Name returns the job name
func (j *RetrainCycleJob) Name() string {
	return "retrain_cycle"
}

// Run executes one training run per configured symbol.
// Symbols train sequentially; a failure on one symbol does not stop the rest.
func (j *RetrainCycleJob) Run() error {
	if len(j.symbols) == 0 {
		j.log.Debug().Msg("No symbols configured, skipping retrain cycle")
		return nil
	}

	var failures int
	for _, symbol := range j.symbols {
		run, err := j.trainingService.RunTraining(context.Background(), symbol)
		if err != nil {
			j.log.Error().Err(err).Str("symbol", symbol).Msg("Retrain failed")
			failures++
			continue
		}
		j.log.Info().
			Str("symbol", symbol).
			Int64("run_id", run.ID).
			Msg("Retrain completed")
	}

	if failures > 0 {
		return fmt.Errorf("retrain cycle finished with %d of %d symbols failed", failures, len(j.symbols))
	}
	return nil
}
