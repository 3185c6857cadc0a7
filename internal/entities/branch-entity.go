package entities

// Branch — справочная запись филиала. Только чтение.
type Branch struct {
	Code             uint64
	Name             string
	SupervisorEmails []string
}
