package services

import (
	"context"
	"time"

	"eod-monitor/internal/entities"
	apperrors "eod-monitor/pkg/errors"
	"eod-monitor/pkg/mailer"
)

// Фейки репозиториев и почтового слоя для юнит-тестов пакета.

type fakeOperationalRepo struct {
	signouts []entities.BranchSignoutRecord
	auths    []entities.BranchAuthRecord
	tellers  []entities.TellerSignoutRecord
	common   []entities.CommonAuthRecord
	userMap  map[string]string

	fetchErr error
}

func (f *fakeOperationalRepo) PendingBranchSignouts(ctx context.Context, date time.Time) ([]entities.BranchSignoutRecord, error) {
	return f.signouts, f.fetchErr
}

func (f *fakeOperationalRepo) PendingBranchAuthorizations(ctx context.Context, date time.Time) ([]entities.BranchAuthRecord, error) {
	return f.auths, f.fetchErr
}

func (f *fakeOperationalRepo) PendingTellerSignouts(ctx context.Context, date time.Time) ([]entities.TellerSignoutRecord, error) {
	return f.tellers, f.fetchErr
}

func (f *fakeOperationalRepo) PendingCommonAuthorizations(ctx context.Context, date time.Time) ([]entities.CommonAuthRecord, error) {
	return f.common, f.fetchErr
}

func (f *fakeOperationalRepo) HeadOfficeUserDepartments(ctx context.Context) (map[string]string, error) {
	return f.userMap, f.fetchErr
}

type fakeBranchRepo struct {
	branches map[uint64]*entities.Branch
}

func (f *fakeBranchRepo) FindBranch(ctx context.Context, code uint64) (*entities.Branch, error) {
	if b, ok := f.branches[code]; ok {
		return b, nil
	}
	return nil, apperrors.ErrNotFound
}

type fakeDepartmentRepo struct {
	departments map[string]*entities.Department
}

func (f *fakeDepartmentRepo) FindDepartment(ctx context.Context, id string) (*entities.Department, error) {
	if d, ok := f.departments[id]; ok {
		return d, nil
	}
	return nil, apperrors.ErrNotFound
}

type fakeDelayLog struct {
	entries []entities.NotificationLogEntry

	byUnit func(from, to time.Time) []entities.UnitCount
	byType func(from, to time.Time) []entities.TypeCount
	err    error
}

func (f *fakeDelayLog) Append(ctx context.Context, entry entities.NotificationLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDelayLog) CountByUnit(ctx context.Context, from, to time.Time) ([]entities.UnitCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byUnit == nil {
		return nil, nil
	}
	return f.byUnit(from, to), nil
}

func (f *fakeDelayLog) CountByType(ctx context.Context, from, to time.Time) ([]entities.TypeCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byType == nil {
		return nil, nil
	}
	return f.byType(from, to), nil
}

type fakeSettingsRepo struct {
	groups map[string][]string
}

func (f *fakeSettingsRepo) RecipientGroup(ctx context.Context, key string) ([]string, error) {
	return f.groups[key], nil
}

type sentEmail struct {
	Recipients []string
	Subject    string
	Template   string
	Data       map[string]interface{}
	Attachment *mailer.Attachment
}

type fakeEmails struct {
	sent    []sentEmail
	sendErr error
}

func (f *fakeEmails) Send(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}) error {
	return f.SendWithAttachment(ctx, recipients, subject, templateName, data, nil)
}

func (f *fakeEmails) SendWithAttachment(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}, att *mailer.Attachment) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentEmail{
		Recipients: recipients,
		Subject:    subject,
		Template:   templateName,
		Data:       data,
		Attachment: att,
	})
	return nil
}
