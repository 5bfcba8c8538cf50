// Package scheduler triggers recurring crawl runs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"madlan-crawler/internal/config"
	"madlan-crawler/internal/pipeline"
)

// Scheduler runs the pipeline on the configured daily schedule.
type Scheduler struct {
	cron      *cron.Cron
	pipe      *pipeline.Pipeline
	cfg       *config.Config
	isRunning bool
}

// New creates a scheduler over an already-wired pipeline.
func New(pipe *pipeline.Pipeline, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		pipe: pipe,
		cfg:  cfg,
	}
}

// Start registers the daily job and starts the cron loop. A disabled
// daily run is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Scheduler.DailyRunEnabled {
		log.Info().Msg("scheduler: daily run disabled")
		return nil
	}

	spec, err := cronSpec(s.cfg.Scheduler.DailyRunTime)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(spec, func() {
		log.Info().Str("city", s.cfg.City).Msg("scheduler: starting daily crawl")
		report, err := s.pipe.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scheduler: daily crawl failed")
			return
		}
		log.Info().Str("run_id", report.RunID).Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).Msg("scheduler: daily crawl completed")
	})
	if err != nil {
		return fmt.Errorf("register daily crawl: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Info().Str("at", s.cfg.Scheduler.DailyRunTime).Str("cron", spec).
		Msg("scheduler: started")
	return nil
}

// Stop halts the cron loop; a running job finishes on its own.
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Info().Msg("scheduler: stopped")
	}
}

// cronSpec converts "HH:MM" into a cron expression.
func cronSpec(dailyTime string) (string, error) {
	parts := strings.Split(dailyTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily_run_time %q, want HH:MM", dailyTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in daily_run_time %q", dailyTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in daily_run_time %q", dailyTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
