// Package scheduler fires pipeline runs and store cleanup on cron
// schedules, pinned to the operator's timezone so "9 AM" means 9 AM IST
// regardless of where the process runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/newshound/internal/types"
)

// Runner starts pipeline runs.
type Runner interface {
	Trigger(ctx context.Context) (types.RunID, error)
}

// Cleaner removes expired articles from storage and the search index.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Config struct {
	// RunSpecs are cron expressions that each trigger a pipeline run.
	RunSpecs []string
	// CleanupSpec triggers expired-article cleanup. Empty disables it.
	CleanupSpec string
	Timezone    string
	Runner      Runner
	Cleaner     Cleaner
	Logger      *slog.Logger
}

type Scheduler struct {
	cfg  Config
	cron *cron.Cron
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &Scheduler{
		cfg:  cfg,
		cron: cron.New(cron.WithParser(cronParser), cron.WithLocation(loc)),
	}, nil
}

// Start registers all schedules and starts the ticker. Bad expressions
// fail here rather than silently never firing.
func (s *Scheduler) Start() error {
	for _, spec := range s.cfg.RunSpecs {
		spec := spec
		_, err := s.cron.AddFunc(spec, func() { s.fireRun(spec) })
		if err != nil {
			return fmt.Errorf("invalid run schedule %q: %w", spec, err)
		}
		s.cfg.Logger.Info("scheduled pipeline run", "spec", spec, "timezone", s.cfg.Timezone)
	}

	if s.cfg.CleanupSpec != "" && s.cfg.Cleaner != nil {
		_, err := s.cron.AddFunc(s.cfg.CleanupSpec, s.fireCleanup)
		if err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", s.cfg.CleanupSpec, err)
		}
		s.cfg.Logger.Info("scheduled cleanup", "spec", s.cfg.CleanupSpec)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron ticker. Jobs already in flight finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) fireRun(spec string) {
	runID, err := s.cfg.Runner.Trigger(context.Background())
	if errors.Is(err, types.ErrRunInProgress) {
		s.cfg.Logger.Info("scheduled run skipped, one already in progress", "spec", spec)
		return
	}
	if err != nil {
		s.cfg.Logger.Error("scheduled run failed to start", "spec", spec, "error", err)
		return
	}
	s.cfg.Logger.Info("scheduled run started", "spec", spec, "run_id", runID)
}

func (s *Scheduler) fireCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.cfg.Cleaner.CleanupExpired(ctx)
	if err != nil {
		s.cfg.Logger.Error("cleanup failed", "error", err)
		return
	}
	s.cfg.Logger.Info("cleanup finished", "removed", removed)
}
