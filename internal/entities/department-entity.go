package entities

// Department — справочная запись департамента головного офиса.
type Department struct {
	ID               string
	Name             string
	SupervisorEmails []string
	ManagerEmails    []string
}
