package entities

import "time"

// Сырые записи операционного хранилища, по одной структуре на категорию.
// Проверяются валидатором на границе обогащения; невалидная запись не
// отбрасывается, а несётся дальше с задокументированными значениями по
// умолчанию (нулевая сумма, пустой референс).

type BranchSignoutRecord struct {
	BranchCode   uint64 `validate:"required"`
	Status       string
	BusinessDate time.Time
}

type BranchAuthRecord struct {
	BranchCode uint64 `validate:"required"`
	Reference  string `validate:"required"`
	EnteredBy  string
	Amount     float64 `validate:"gte=0"`
}

type TellerSignoutRecord struct {
	BranchCode uint64 `validate:"required"`
	TellerID   string `validate:"required"`
}

type CommonAuthRecord struct {
	BranchCode uint64 `validate:"required"`
	Reference  string `validate:"required"`
	EnteredBy  string
}
