package entities

import "time"

// NotificationLogEntry — запись журнала уведомлений (append-only).
// Пишется по одной на каждое отправленное таргетное уведомление;
// консолидированные и недельные рассылки в журнал не попадают.
// Инвариант: заполнено ровно одно из BranchID / DepartmentID.
type NotificationLogEntry struct {
	Timestamp    time.Time
	DelayType    Category
	BranchID     *uint64
	DepartmentID *string
	SentTo       []string
}

func BranchLogEntry(ts time.Time, delayType Category, branchCode uint64, sentTo []string) NotificationLogEntry {
	code := branchCode
	return NotificationLogEntry{Timestamp: ts, DelayType: delayType, BranchID: &code, SentTo: sentTo}
}

func DepartmentLogEntry(ts time.Time, delayType Category, departmentID string, sentTo []string) NotificationLogEntry {
	id := departmentID
	return NotificationLogEntry{Timestamp: ts, DelayType: delayType, DepartmentID: &id, SentTo: sentTo}
}
