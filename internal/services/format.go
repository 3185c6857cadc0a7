package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney — сумма с разделителями тысяч и двумя знаками: "1,234,567.89".
func formatMoney(amount float64) string {
	return moneyPrinter.Sprintf("%.2f", amount)
}

const (
	displayDateLayout = "02-Jan-2006"
	timestampLayout   = "2006-01-02 15:04:05"
)
