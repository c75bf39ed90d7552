package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/config"
	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/service/reporting"
)

// Summarizer computes the summary of one month.
type Summarizer interface {
	MonthlySummary(ctx context.Context, month time.Time) (models.MonthlySummary, error)
}

// Archive stores computed summaries. It is optional.
type Archive interface {
	SaveMonthlySummary(ctx context.Context, summary models.MonthlySummary) error
}

// Notifier delivers the summary text to the farmer. It is optional.
type Notifier interface {
	Notify(ctx context.Context, body string) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	summarizer Summarizer
	archive    Archive
	notifier   Notifier
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance. archive and notifier may be
// nil, in which case summaries are only logged.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, summarizer Summarizer, archive Archive, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// Standard 5-field cron expressions, evaluated in the farm's timezone.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:       c,
		schedule:   cfg.CronSchedule,
		summarizer: summarizer,
		archive:    archive,
		notifier:   notifier,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Start registers the monthly summary job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.summarizePreviousMonth); err != nil {
		return fmt.Errorf("schedule monthly summary %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) summarizePreviousMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.runMonthlySummary(ctx, reporting.PreviousMonth(s.now().In(s.loc))); err != nil {
		s.logger.Error("monthly summary failed", zap.Error(err))
	}
}

func (s *Scheduler) runMonthlySummary(ctx context.Context, month time.Time) error {
	s.logger.Info("generating monthly summary", zap.String("month", month.Format(models.MonthLayout)))

	summary, err := s.summarizer.MonthlySummary(ctx, month)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}

	text := reporting.Describe(summary)
	s.logger.Info(text,
		zap.String("month", summary.Month),
		zap.Int("entries", summary.Entries),
		zap.Int("total_eggs", summary.TotalEggs),
		zap.String("total_feed_cost", summary.TotalFeedCost.String()))

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveMonthlySummary(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("archive summary: %w", err))
		} else {
			s.logger.Info("monthly summary archived", zap.String("month", summary.Month))
		}
	}

	if s.notifier != nil {
		if id, err := s.notifier.Notify(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("send summary: %w", err))
		} else {
			s.logger.Info("monthly summary sent", zap.String("message_id", id))
		}
	}

	return errors.Join(errs...)
}
