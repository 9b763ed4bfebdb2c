package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

type fakeFetcher struct {
	records    []models.DailyMetricRecord
	err        error
	start, end string
}

func (f *fakeFetcher) FetchRange(_ context.Context, startDate, endDate string) ([]models.DailyMetricRecord, error) {
	f.start, f.end = startDate, endDate
	return f.records, f.err
}

type fakeSheets struct {
	sheetRange string
	rows       [][]interface{}
	err        error
}

func (f *fakeSheets) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	f.sheetRange = sheetRange
	f.rows = append(f.rows, values)
	return f.err
}

type fakeSnapshots struct {
	saved []models.ReportSnapshot
	err   error
}

func (f *fakeSnapshots) SaveReportSnapshot(_ context.Context, snapshot models.ReportSnapshot) error {
	f.saved = append(f.saved, snapshot)
	return f.err
}

func (f *fakeSnapshots) ListReportSnapshots(_ context.Context, limit int64) ([]models.ReportSnapshot, error) {
	if int(limit) < len(f.saved) {
		return f.saved[:limit], f.err
	}
	return f.saved, f.err
}

func TestGenerateWeeklyReport(t *testing.T) {
	fetcher := &fakeFetcher{records: sampleDataset()}
	sheets := &fakeSheets{}
	snapshots := &fakeSnapshots{}
	svc := NewService(fetcher, sheets, snapshots, time.UTC, nil)

	now := time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC)
	snapshot, err := svc.GenerateWeeklyReport(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", fetcher.start)
	assert.Equal(t, "2024-03-07", fetcher.end)

	assert.Equal(t, "2024-03-01", snapshot.StartDate)
	assert.Equal(t, "2024-03-07", snapshot.EndDate)
	assert.Equal(t, 2, snapshot.Entries)
	assert.Equal(t, 3, snapshot.Deliveries)
	assert.Equal(t, 6, snapshot.RxFilled)
	assert.Equal(t, 1, snapshot.Services)
	assert.InDelta(t, 25.0, snapshot.ServiceRevenue, 1e-9)
	assert.Contains(t, snapshot.Summary, "revenue $25.00")
	assert.Equal(t, now, snapshot.CreatedAt)

	require.Len(t, snapshots.saved, 1)
	assert.Equal(t, *snapshot, snapshots.saved[0])

	assert.Equal(t, "Reports!A:H", sheets.sheetRange)
	require.Len(t, sheets.rows, 1)
	assert.Equal(t, []interface{}{"2024-03-01", "2024-03-07", 2, 3, 6, 6, 1, "25.00"}, sheets.rows[0])
}

func TestGenerateWeeklyReport_ArchiveFailuresAreNotFatal(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &fakeSheets{err: errors.New("quota")}, &fakeSnapshots{err: errors.New("down")}, time.UTC, nil)

	snapshot, err := svc.GenerateWeeklyReport(context.Background(), time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, snapshot.Entries)
	assert.Contains(t, snapshot.Summary, "no entries recorded")
}

func TestGenerateWeeklyReport_FetchFailure(t *testing.T) {
	fetchErr := &models.FetchError{StatusCode: 503, Body: "maintenance"}
	svc := NewService(&fakeFetcher{err: fetchErr}, nil, nil, time.UTC, nil)

	_, err := svc.GenerateWeeklyReport(context.Background(), time.Now())
	var target *models.FetchError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 503, target.StatusCode)
}

func TestGenerateWeeklyReport_UsesLocationForToday(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := NewService(fetcher, nil, nil, time.FixedZone("west", -5*60*60), nil)

	_, err := svc.GenerateWeeklyReport(context.Background(), time.Date(2024, 3, 8, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", fetcher.start)
	assert.Equal(t, "2024-03-07", fetcher.end)
}

func TestHistory(t *testing.T) {
	_, err := NewService(&fakeFetcher{}, nil, nil, nil, nil).History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	snapshots := &fakeSnapshots{saved: []models.ReportSnapshot{{StartDate: "a"}, {StartDate: "b"}}}
	history, err := NewService(&fakeFetcher{}, nil, snapshots, nil, nil).History(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.ReportSnapshot{{StartDate: "a"}}, history)
}
