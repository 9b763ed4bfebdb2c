package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/repository/mongodb"
	repo "github.com/mamadbah2/wellca/internal/repository/sheets"
)

const (
	reportsDataRange = "Reports!A:H"
	reportWindowDays = 7
)

// ErrHistoryDisabled is returned when no snapshot store is configured.
var ErrHistoryDisabled = errors.New("report history is not enabled")

// RangeFetcher loads the records of a date range.
type RangeFetcher interface {
	FetchRange(ctx context.Context, startDate, endDate string) ([]models.DailyMetricRecord, error)
}

// Service produces reports from freshly fetched data and archives the weekly digest.
type Service struct {
	fetcher   RangeFetcher
	sheets    repo.Repository
	snapshots mongodb.Repository
	location  *time.Location
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. The sheets and snapshot
// repositories are optional.
func NewService(fetcher RangeFetcher, sheets repo.Repository, snapshots mongodb.Repository, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		fetcher:   fetcher,
		sheets:    sheets,
		snapshots: snapshots,
		location:  location,
		logger:    logger,
	}
}

// Build fetches a date range and aggregates it. The dataset is returned too
// for exporters that need the raw rows.
func (s *Service) Build(ctx context.Context, startDate, endDate string) (Report, []models.DailyMetricRecord, error) {
	dataset, err := s.fetcher.FetchRange(ctx, startDate, endDate)
	if err != nil {
		return Report{}, nil, fmt.Errorf("load report range: %w", err)
	}
	s.logger.Debug("report range loaded",
		zap.String("start", startDate),
		zap.String("end", endDate),
		zap.Int("entries", len(dataset)))
	return Aggregate(dataset), dataset, nil
}

// GenerateWeeklyReport aggregates the seven days ending on now's calendar
// day, archives the result and returns its snapshot. Archive failures are
// logged and do not fail the report.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (*models.ReportSnapshot, error) {
	endDate := models.Today(now, s.location)
	end, err := models.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("resolve report window: %w", err)
	}
	startDate := end.AddDate(0, 0, -(reportWindowDays - 1)).Format(models.DateLayout)

	report, _, err := s.Build(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ReportSnapshot{
		StartDate:      startDate,
		EndDate:        endDate,
		Entries:        report.Totals.Entries,
		Deliveries:     report.Totals.Deliveries,
		RxFilled:       report.Totals.Rx,
		RxProcessed:    report.Totals.Processed,
		Services:       report.Totals.Services,
		ServiceRevenue: report.Breakdown.GrandTotal.InexactFloat64(),
		Summary:        Summary(report, startDate, endDate),
		CreatedAt:      now.UTC(),
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveReportSnapshot(ctx, *snapshot); err != nil {
			s.logger.Error("failed to store report snapshot", zap.Error(err))
		}
	}

	if s.sheets != nil {
		row := []interface{}{
			snapshot.StartDate,
			snapshot.EndDate,
			snapshot.Entries,
			snapshot.Deliveries,
			snapshot.RxFilled,
			snapshot.RxProcessed,
			snapshot.Services,
			report.Breakdown.GrandTotal.StringFixed(2),
		}
		if err := s.sheets.WriteRow(ctx, reportsDataRange, row); err != nil {
			s.logger.Error("failed to append report row", zap.Error(err))
		}
	}

	s.logger.Info("weekly report generated",
		zap.String("start", startDate),
		zap.String("end", endDate),
		zap.Int("entries", snapshot.Entries))
	return snapshot, nil
}

// History returns the most recent archived weekly reports, newest first.
func (s *Service) History(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrHistoryDisabled
	}
	snapshots, err := s.snapshots.ListReportSnapshots(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load report history: %w", err)
	}
	return snapshots, nil
}
