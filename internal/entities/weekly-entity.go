package entities

import "time"

// UnitCount — счётчик задержек по единице за период, уже с разрешённым
// отображаемым именем (филиал, иначе департамент, иначе "Unknown").
type UnitCount struct {
	UnitName string
	Total    int64
}

type TypeCount struct {
	DelayType Category
	Total     int64
}

type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// TrendSnapshot — производный недельный срез. Считается заново на каждом
// запуске, никуда не сохраняется.
type TrendSnapshot struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	ByUnit []UnitCount
	ByType []TypeCount

	TotalThisWeek int64
	TotalLastWeek int64

	// TrendPercent — "+12.5%" / "-3.1%", либо "N/A", если прошлая неделя
	// была пустой; в этом случае направление остаётся neutral.
	TrendPercent   string
	TrendDirection TrendDirection

	TopOffenderName  string
	TopOffenderCount int64

	AuthDelays    int64
	SignoutDelays int64
}
