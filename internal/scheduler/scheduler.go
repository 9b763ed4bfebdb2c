package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/config"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/notify"
)

const reportTimeout = 2 * time.Minute

// WeeklyReporter produces the weekly digest.
type WeeklyReporter interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (*models.ReportSnapshot, error)
}

// Notifier queues a dashboard notification.
type Notifier interface {
	Queue(text string, kind notify.Kind) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reporter WeeklyReporter
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler running in the reporting timezone.
func NewScheduler(cfg config.ReportingConfig, reporter WeeklyReporter, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithLocation(cfg.Location()))

	return &Scheduler{
		cron:     c,
		schedule: cfg.CronSchedule,
		reporter: reporter,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Start registers the weekly report and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Next reports the next planned run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// GenerateWeeklyReport builds the digest now and queues its summary.
func (s *Scheduler) GenerateWeeklyReport(ctx context.Context) (*models.ReportSnapshot, error) {
	s.logger.Info("generating weekly report")

	report, err := s.reporter.GenerateWeeklyReport(ctx, s.now())
	if err != nil {
		if qerr := s.notifier.Queue(models.MsgReportError+err.Error(), notify.KindError); qerr != nil {
			s.logger.Debug("report failure message dropped", zap.Error(qerr))
		}
		return nil, err
	}

	if err := s.notifier.Queue(report.Summary, notify.KindInfo); err != nil {
		s.logger.Warn("failed to queue weekly report summary", zap.Error(err))
	} else {
		s.logger.Info("weekly report queued", zap.String("start", report.StartDate), zap.String("end", report.EndDate))
	}
	return report, nil
}

func (s *Scheduler) runWeeklyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if _, err := s.GenerateWeeklyReport(ctx); err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
	}
}
