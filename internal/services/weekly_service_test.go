package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
)

type weeklyFixture struct {
	delayLog *fakeDelayLog
	settings *fakeSettingsRepo
	emails   *fakeEmails
	svc      *WeeklyService
}

func newWeeklyFixture(groups map[string][]string) *weeklyFixture {
	f := &weeklyFixture{
		delayLog: &fakeDelayLog{},
		settings: &fakeSettingsRepo{groups: groups},
		emails:   &fakeEmails{},
	}
	f.svc = NewWeeklyService(f.delayLog, f.settings, f.emails, testConfig(), zap.NewNop())
	// Понедельник 9:00, как в расписании еженедельного запуска.
	f.svc.now = func() time.Time { return time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestWeekBounds(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"понедельник", time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)},
		{"среда", time.Date(2025, 9, 10, 23, 30, 0, 0, time.UTC), time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)},
		{"воскресенье", time.Date(2025, 9, 14, 0, 0, 1, 0, time.UTC), time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := weekBounds(tc.in)
			assert.Equal(t, tc.want, start)
			assert.Equal(t, tc.want.AddDate(0, 0, 6).Add(23*time.Hour+59*time.Minute+59*time.Second), end)
		})
	}
}

func TestComputeSnapshot_Trend(t *testing.T) {
	f := newWeeklyFixture(nil)
	thisStart, _ := weekBounds(f.svc.now())
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		if from.Equal(thisStart) {
			return []entities.UnitCount{
				{UnitName: "Main Branch", Total: 8},
			}
		}
		return []entities.UnitCount{{UnitName: "Main Branch", Total: 6}}
	}
	f.delayLog.byType = func(from, to time.Time) []entities.TypeCount {
		return []entities.TypeCount{
			{DelayType: entities.CategoryBranchAuth, Total: 5},
			{DelayType: entities.CategoryBranchSignout, Total: 3},
		}
	}

	snapshot, err := f.svc.ComputeSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(8), snapshot.TotalThisWeek)
	assert.Equal(t, int64(6), snapshot.TotalLastWeek)
	assert.Equal(t, "+33.3%", snapshot.TrendPercent)
	assert.Equal(t, entities.TrendUp, snapshot.TrendDirection)
	assert.Equal(t, "Main Branch", snapshot.TopOffenderName)
	assert.Equal(t, int64(8), snapshot.TopOffenderCount)
	assert.Equal(t, int64(5), snapshot.AuthDelays)
	assert.Equal(t, int64(3), snapshot.SignoutDelays)
}

func TestComputeSnapshot_TrendDown(t *testing.T) {
	f := newWeeklyFixture(nil)
	thisStart, _ := weekBounds(f.svc.now())
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		if from.Equal(thisStart) {
			return []entities.UnitCount{{UnitName: "City Branch", Total: 3}}
		}
		return []entities.UnitCount{{UnitName: "City Branch", Total: 4}}
	}

	snapshot, err := f.svc.ComputeSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "-25.0%", snapshot.TrendPercent)
	assert.Equal(t, entities.TrendDown, snapshot.TrendDirection)
}

func TestComputeSnapshot_EmptyLastWeek(t *testing.T) {
	f := newWeeklyFixture(nil)
	thisStart, _ := weekBounds(f.svc.now())
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		if from.Equal(thisStart) {
			return []entities.UnitCount{{UnitName: "City Branch", Total: 5}}
		}
		return nil
	}

	snapshot, err := f.svc.ComputeSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "N/A", snapshot.TrendPercent)
	assert.Equal(t, entities.TrendNeutral, snapshot.TrendDirection)
}

func TestComputeSnapshot_EmptyJournal(t *testing.T) {
	f := newWeeklyFixture(nil)

	snapshot, err := f.svc.ComputeSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.TotalThisWeek)
	assert.Equal(t, "N/A", snapshot.TrendPercent)
	assert.Equal(t, "N/A", snapshot.TopOffenderName)
	assert.Equal(t, int64(0), snapshot.TopOffenderCount)
}

func TestComputeSnapshot_Idempotent(t *testing.T) {
	f := newWeeklyFixture(nil)
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		return []entities.UnitCount{{UnitName: "City Branch", Total: 2}}
	}

	first, err := f.svc.ComputeSnapshot(context.Background())
	require.NoError(t, err)
	second, err := f.svc.ComputeSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeAndSend_DigestWithAttachment(t *testing.T) {
	f := newWeeklyFixture(map[string][]string{
		"IT_CORE_MONITORING":           {"it@bank.tj"},
		"SENIOR_MANAGEMENT":            {"cto@bank.tj", "it@bank.tj"},
		"BRANCH_DISTRIBUTION_CHANNELS": {"branch-ops@bank.tj"},
	})
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		return []entities.UnitCount{{UnitName: "City Branch", Total: 2}}
	}

	err := f.svc.ComputeAndSend(context.Background())

	require.NoError(t, err)
	require.Len(t, f.emails.sent, 1)
	sent := f.emails.sent[0]
	// Дубликаты между группами схлопнуты.
	assert.Equal(t, []string{"cto@bank.tj", "it@bank.tj", "branch-ops@bank.tj"}, sent.Recipients)
	assert.Equal(t, "Weekly EOD Operations Summary: 08-Sep-2025 to 14-Sep-2025", sent.Subject)
	require.NotNil(t, sent.Attachment)
	assert.Equal(t, "eod-weekly-2025-09-08.xlsx", sent.Attachment.Filename)
	assert.NotEmpty(t, sent.Attachment.Data)
}

func TestComputeAndSend_SendFailureIsLocal(t *testing.T) {
	f := newWeeklyFixture(map[string][]string{
		"IT_CORE_MONITORING": {"it@bank.tj"},
	})
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		return []entities.UnitCount{{UnitName: "City Branch", Total: 2}}
	}
	f.emails.sendErr = assert.AnError

	err := f.svc.ComputeAndSend(context.Background())

	// Неудачная отправка дайджеста не фатальна для запуска.
	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
}

func TestComputeAndSend_NoRecipients(t *testing.T) {
	f := newWeeklyFixture(nil)

	err := f.svc.ComputeAndSend(context.Background())

	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
}
