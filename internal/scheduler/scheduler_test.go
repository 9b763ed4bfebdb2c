package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wellca/internal/config"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/notify"
)

type fakeReporter struct {
	err    error
	called time.Time
}

func (f *fakeReporter) GenerateWeeklyReport(_ context.Context, now time.Time) (*models.ReportSnapshot, error) {
	f.called = now
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReportSnapshot{StartDate: "2024-01-13", EndDate: "2024-01-19", Summary: "Wellca report (2024-01-13 - 2024-01-19): 5 entries."}, nil
}

type queued struct {
	text string
	kind notify.Kind
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []queued
}

func (f *fakeNotifier) Queue(text string, kind notify.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, queued{text: text, kind: kind})
	return nil
}

func reportingConfig(schedule string) config.ReportingConfig {
	return config.ReportingConfig{CronSchedule: schedule, Timezone: "America/Toronto"}
}

func TestGenerateWeeklyReport_QueuesSummary(t *testing.T) {
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}
	s := NewScheduler(reportingConfig("0 20 * * 5"), reporter, notifier, nil)
	fixed := time.Date(2024, 1, 19, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	report, err := s.GenerateWeeklyReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-01-19", report.EndDate)
	assert.Equal(t, fixed, reporter.called)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, report.Summary, notifier.messages[0].text)
	assert.Equal(t, notify.KindInfo, notifier.messages[0].kind)
}

func TestGenerateWeeklyReport_Failure(t *testing.T) {
	notifier := &fakeNotifier{}
	s := NewScheduler(reportingConfig("0 20 * * 5"), &fakeReporter{err: errors.New("backend down")}, notifier, nil)

	_, err := s.GenerateWeeklyReport(context.Background())
	require.Error(t, err)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, models.MsgReportError+"backend down", notifier.messages[0].text)
	assert.Equal(t, notify.KindError, notifier.messages[0].kind)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(reportingConfig("every friday"), &fakeReporter{}, &fakeNotifier{}, nil)

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every friday")
}

func TestStart_NextRunOnFridayEvening(t *testing.T) {
	s := NewScheduler(reportingConfig("0 20 * * 5"), &fakeReporter{}, &fakeNotifier{}, nil)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	local := next.In(reportingConfig("").Location())
	assert.Equal(t, time.Friday, local.Weekday())
	assert.Equal(t, 20, local.Hour())
	assert.Equal(t, 0, local.Minute())
}
