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

func sampleRunContext() entities.RunContext {
	return entities.RunContext{
		entities.RunKeyBranchSignouts: {
			{Category: entities.CategoryBranchSignout, Unit: entities.BranchRef(200), UnitName: "City Branch"},
			{Category: entities.CategoryBranchSignout, Unit: entities.BranchRef(100), UnitName: "Head Office"},
		},
		entities.RunKeyTellerSignouts: {
			{Category: entities.CategoryTellerSignout, Unit: entities.BranchRef(200), UnitName: "City Branch", TellerID: "T-01"},
		},
		entities.RunKeyBranchAuths: {
			{Category: entities.CategoryBranchAuth, Unit: entities.BranchRef(300), UnitName: "North Branch", Reference: "TXN-1", Amount: 1234.50},
		},
		entities.RunKeyCommonAuths: {
			{Category: entities.CategoryCommonAuth, Unit: entities.BranchRef(300), UnitName: "North Branch", Reference: "CA-1"},
			{Category: entities.CategoryCommonAuth, Unit: entities.DepartmentRef("CREDIT"), UnitName: "Credit Administration", Reference: "CA-2"},
			{Category: entities.CategoryCommonAuth, Unit: entities.DepartmentRef("FINANCE"), UnitName: "Finance Department", Reference: "CA-3"},
		},
	}
}

type consolidatedFixture struct {
	settings *fakeSettingsRepo
	emails   *fakeEmails
	svc      *ConsolidatedService
}

func newConsolidatedFixture(groups map[string][]string) *consolidatedFixture {
	f := &consolidatedFixture{
		settings: &fakeSettingsRepo{groups: groups},
		emails:   &fakeEmails{},
	}
	f.svc = NewConsolidatedService(f.settings, f.emails, testConfig(), zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2025, 9, 1, 18, 5, 0, 0, time.UTC) }
	return f
}

func allGroups() map[string][]string {
	return map[string][]string{
		"IT_CORE_MONITORING":           {"it@bank.tj"},
		"BRANCH_DISTRIBUTION_CHANNELS": {"branch-ops@bank.tj"},
		"CREDIT_SUPERVISORS":           {"credit@bank.tj"},
		"FINANCE_SUPERVISORS":          {"finance@bank.tj"},
	}
}

func reportByTitle(t *testing.T, sent []sentEmail, title string) sentEmail {
	t.Helper()
	for _, e := range sent {
		if e.Data["report_title"] == title {
			return e
		}
	}
	t.Fatalf("отчёт %q не отправлен", title)
	return sentEmail{}
}

func TestBuildAndSend_ThreeAudiences(t *testing.T) {
	f := newConsolidatedFixture(allGroups())

	err := f.svc.BuildAndSend(context.Background(), sampleRunContext())

	require.NoError(t, err)
	require.Len(t, f.emails.sent, 3)

	branch := reportByTitle(t, f.emails.sent, "Branch Operations Report")
	assert.ElementsMatch(t, []string{"it@bank.tj", "branch-ops@bank.tj"}, branch.Recipients)
	metrics := branch.Data["metrics"].(map[string]interface{})
	// Sign-out головного офиса не входит в отчёт по филиалам.
	assert.Equal(t, 1, metrics["total_branch_signouts"])
	assert.Equal(t, 1, metrics["total_teller_signouts"])
	assert.Equal(t, "1,234.50", metrics["total_financial_value"])
	assert.Equal(t, 1, metrics["total_common_auths"])

	credit := reportByTitle(t, f.emails.sent, "Credit Department Report")
	assert.ElementsMatch(t, []string{"it@bank.tj", "credit@bank.tj"}, credit.Recipients)
	creditGroups := credit.Data["groups"].([]ReportGroup)
	require.Len(t, creditGroups, 1)
	assert.Equal(t, "Credit Administration", creditGroups[0].Name)
	require.Len(t, creditGroups[0].Incidents, 1)
	assert.Equal(t, "CA-2", creditGroups[0].Incidents[0].Reference)

	finance := reportByTitle(t, f.emails.sent, "Finance Department Report")
	financeGroups := finance.Data["groups"].([]ReportGroup)
	require.Len(t, financeGroups, 1)
	assert.Equal(t, "CA-3", financeGroups[0].Incidents[0].Reference)
}

func TestBuildAndSend_BranchReportSortedAndGrouped(t *testing.T) {
	f := newConsolidatedFixture(allGroups())

	require.NoError(t, f.svc.BuildAndSend(context.Background(), sampleRunContext()))

	branch := reportByTitle(t, f.emails.sent, "Branch Operations Report")
	groups := branch.Data["groups"].([]ReportGroup)
	require.Len(t, groups, 2)
	// Алфавитный порядок единиц, внутри группы — по типу.
	assert.Equal(t, "City Branch", groups[0].Name)
	assert.Equal(t, "200", groups[0].Code)
	assert.Equal(t, "North Branch", groups[1].Name)
	require.Len(t, groups[0].Incidents, 2)
	assert.Equal(t, "Branch Sign-out", groups[0].Incidents[0].TypeLabel())
	assert.Equal(t, "Teller Sign-out", groups[0].Incidents[1].TypeLabel())
}

func TestBuildAndSend_MissingRecipientsSkipsOnlyThatAudience(t *testing.T) {
	groups := allGroups()
	delete(groups, "IT_CORE_MONITORING")
	delete(groups, "CREDIT_SUPERVISORS")
	f := newConsolidatedFixture(groups)

	err := f.svc.BuildAndSend(context.Background(), sampleRunContext())

	require.NoError(t, err)
	// Кредитная аудитория без получателей пропущена, остальные ушли.
	require.Len(t, f.emails.sent, 2)
	reportByTitle(t, f.emails.sent, "Branch Operations Report")
	reportByTitle(t, f.emails.sent, "Finance Department Report")
}

func TestBuildAndSend_EmptyRunContext(t *testing.T) {
	f := newConsolidatedFixture(allGroups())

	err := f.svc.BuildAndSend(context.Background(), entities.RunContext{})

	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
}

func TestBuildAndSend_SendFailureDoesNotFailRun(t *testing.T) {
	f := newConsolidatedFixture(allGroups())
	f.emails.sendErr = assert.AnError

	err := f.svc.BuildAndSend(context.Background(), sampleRunContext())

	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
}
