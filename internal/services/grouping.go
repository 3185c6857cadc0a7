package services

import "eod-monitor/internal/entities"

// GroupKey — ключ группировки инцидентов. Равенство ключей определяется
// парой (ссылка на единицу, отображаемое имя): инциденты одного филиала с
// разными разрешёнными именами (например, при фолбэке "Unknown Branch")
// попадают в разные группы.
type GroupKey struct {
	Unit entities.UnitRef
	Name string
}

// IncidentGroups — упорядоченный мультимап инцидентов. Порядок итерации —
// порядок первого появления ключа при Add; сортировки внутри нет, что даёт
// детерминированную раскладку отчёта, если входной список отсортирован
// заранее.
type IncidentGroups struct {
	order []GroupKey
	items map[GroupKey][]entities.Incident
}

func NewIncidentGroups() *IncidentGroups {
	return &IncidentGroups{items: make(map[GroupKey][]entities.Incident)}
}

func (g *IncidentGroups) Add(inc entities.Incident) {
	key := GroupKey{Unit: inc.Unit, Name: inc.UnitName}
	if _, ok := g.items[key]; !ok {
		g.order = append(g.order, key)
	}
	g.items[key] = append(g.items[key], inc)
}

// Keys возвращает ключи в порядке первого появления.
func (g *IncidentGroups) Keys() []GroupKey {
	return g.order
}

func (g *IncidentGroups) Get(key GroupKey) []entities.Incident {
	return g.items[key]
}

func (g *IncidentGroups) Len() int {
	return len(g.order)
}

// GroupIncidents раскладывает список по единицам, сохраняя порядок
// первого вхождения.
func GroupIncidents(incidents []entities.Incident) *IncidentGroups {
	groups := NewIncidentGroups()
	for _, inc := range incidents {
		groups.Add(inc)
	}
	return groups
}
