package entities

import "fmt"

// Category — тип задержки EOD. Значения совпадают с delay_type
// в журнале уведомлений.
type Category string

const (
	CategoryBranchSignout Category = "sign-out"
	CategoryBranchAuth    Category = "authorization"
	CategoryTellerSignout Category = "teller-sign-out"
	CategoryCommonAuth    Category = "common-auth"
)

type UnitKind string

const (
	UnitBranch     UnitKind = "branch"
	UnitDepartment UnitKind = "department"
)

// UnitRef — ссылка на организационную единицу. Заполнено ровно одно из
// полей BranchCode / DepartmentID, в зависимости от Kind. Тип сравним и
// используется как ключ группировки.
type UnitRef struct {
	Kind         UnitKind
	BranchCode   uint64
	DepartmentID string
}

func BranchRef(code uint64) UnitRef {
	return UnitRef{Kind: UnitBranch, BranchCode: code}
}

func DepartmentRef(id string) UnitRef {
	return UnitRef{Kind: UnitDepartment, DepartmentID: id}
}

// Code возвращает отображаемый код единицы для отчётов.
func (u UnitRef) Code() string {
	if u.Kind == UnitDepartment {
		return u.DepartmentID
	}
	return fmt.Sprintf("%d", u.BranchCode)
}

// Incident — обогащённая запись о незакрытой операции. Создаётся
// диспетчером, живёт только в пределах одного запуска.
type Incident struct {
	Category Category
	Unit     UnitRef
	UnitName string

	// Детали, зависящие от категории.
	Reference string  // ключ документа в очереди авторизации
	ActorID   string  // кто ввёл документ
	TellerID  string  // кассир с незакрытой сменой
	Amount    float64 // сумма в базовой валюте (только финансовые авторизации)
}

// TypeLabel — человекочитаемый тип инцидента в консолидированном отчёте.
func (i Incident) TypeLabel() string {
	switch i.Category {
	case CategoryBranchSignout:
		return "Branch Sign-out"
	case CategoryTellerSignout:
		return "Teller Sign-out"
	case CategoryBranchAuth:
		return "Financial Auth"
	case CategoryCommonAuth:
		return "Common Auth"
	default:
		return string(i.Category)
	}
}

// Detail — строка деталей для консолидированного отчёта.
func (i Incident) Detail() string {
	switch i.Category {
	case CategoryBranchSignout:
		return "Branch sign-out is pending."
	case CategoryTellerSignout:
		return fmt.Sprintf("Teller ID: %s", i.TellerID)
	default:
		return fmt.Sprintf("Ref: %s by %s", i.Reference, i.ActorID)
	}
}

// Ключи контекста запуска. Каждый диспетчер пишет ровно под свой ключ.
const (
	RunKeyBranchSignouts = "branch_signouts"
	RunKeyBranchAuths    = "branch_auths"
	RunKeyTellerSignouts = "teller_signouts"
	RunKeyCommonAuths    = "common_auths"
)

// RunContext — накопитель результатов диспетчеров за один запуск.
// Принадлежит координатору; строитель отчётов получает его по ссылке.
type RunContext map[string][]Incident
