package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
)

// Runner is the job the scheduler triggers.
type Runner interface {
	RunDailyGeneration(ctx context.Context) (healthrisk.BatchReport, error)
}

// Scheduler triggers the daily health history generation on a cron schedule (UTC).
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cronExpr  string
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. timeout bounds one whole run.
func New(cronExpr string, timeout time.Duration, runner Runner, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		cronExpr:  cronExpr,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the job and starts the underlying scheduler.
// Overlapping executions are skipped.
func (s *Scheduler) Start() error {
	if s.cronExpr == "" {
		s.logger.Info("scheduler: no schedule configured; generation runs only via HTTP")
		return nil
	}

	_, err := s.scheduler.Cron(s.cronExpr).SingletonMode().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: started", zap.String("cron", s.cronExpr))
	return nil
}

func (s *Scheduler) runOnce() {
	s.logger.Info("scheduler: running health history generation")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.runner.RunDailyGeneration(ctx)
	switch {
	case errors.Is(err, healthrisk.ErrRunInProgress):
		s.logger.Info("scheduler: generation already running elsewhere")
	case err != nil:
		s.logger.Error("scheduler: generation failed", zap.Error(err))
	default:
		s.logger.Info("scheduler: completed health history generation", zap.Int("users", len(report)))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
