package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"eod-monitor/internal/entities"
)

func newRunnerFixture() (*monitorFixture, *fakeSettingsRepo, *Runner) {
	f := newMonitorFixture()
	settings := &fakeSettingsRepo{groups: allGroups()}
	cfg := testConfig()
	logger := zap.NewNop()
	consolidated := NewConsolidatedService(settings, f.emails, cfg, logger)
	weekly := NewWeeklyService(f.delayLog, settings, f.emails, cfg, logger)
	return f, settings, NewRunner(f.svc, consolidated, weekly, logger)
}

func TestRunDaily_FullChain(t *testing.T) {
	f, _, runner := newRunnerFixture()
	f.ops.signouts = []entities.BranchSignoutRecord{{BranchCode: 200, Status: "I"}}
	f.ops.tellers = []entities.TellerSignoutRecord{{BranchCode: 200, TellerID: "T-01"}}
	f.branches.branches[200] = &entities.Branch{Code: 200, Name: "City Branch", SupervisorEmails: []string{"sup@bank.tj"}}

	err := runner.RunDaily(context.Background())

	require.NoError(t, err)
	// Два таргетных уведомления + отчёт по операциям филиалов; надзорные
	// отчёты пропущены за отсутствием департаментских инцидентов.
	require.Len(t, f.emails.sent, 3)
	last := f.emails.sent[len(f.emails.sent)-1]
	assert.Equal(t, "consolidated_report.html", last.Template)
	assert.Equal(t, "Branch Operations Report", last.Data["report_title"])
	assert.Len(t, f.delayLog.entries, 2)
}

func TestRunDaily_FetchFailureAbortsRun(t *testing.T) {
	f, _, runner := newRunnerFixture()
	f.ops.fetchErr = errors.New("replica unreachable")

	err := runner.RunDaily(context.Background())

	require.Error(t, err)
	assert.Empty(t, f.emails.sent)
}

func TestRunDaily_EmptyDayStillSucceeds(t *testing.T) {
	f, _, runner := newRunnerFixture()

	err := runner.RunDaily(context.Background())

	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
}

func TestRunDaily_RunIDThreadedThroughServices(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	f := newMonitorFixture()
	f.svc = NewMonitorService(f.ops, f.branches, f.departments, f.delayLog, f.emails, testConfig(), logger)
	settings := &fakeSettingsRepo{groups: allGroups()}
	consolidated := NewConsolidatedService(settings, f.emails, testConfig(), logger)
	weekly := NewWeeklyService(f.delayLog, settings, f.emails, testConfig(), logger)
	runner := NewRunner(f.svc, consolidated, weekly, logger)

	require.NoError(t, runner.RunDaily(context.Background()))

	// Каждая строка запуска, включая строки диспетчеров, несёт одно и
	// то же поле run_id.
	entries := logs.All()
	require.NotEmpty(t, entries)
	var runID string
	for _, entry := range entries {
		id, ok := entry.ContextMap()["run_id"].(string)
		require.True(t, ok, "строка без run_id: %s", entry.Message)
		if runID == "" {
			runID = id
		}
		assert.Equal(t, runID, id)
	}
	assert.NotEmpty(t, runID)
}

func TestRunWeekly(t *testing.T) {
	f, _, runner := newRunnerFixture()
	f.delayLog.byUnit = func(from, to time.Time) []entities.UnitCount {
		return []entities.UnitCount{{UnitName: "City Branch", Total: 4}}
	}

	err := runner.RunWeekly(context.Background())

	require.NoError(t, err)
	require.Len(t, f.emails.sent, 1)
	assert.Equal(t, "weekly_summary_report.html", f.emails.sent[0].Template)
}
