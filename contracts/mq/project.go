package mq

import "time"

// Routing keys on the events exchange.
const (
	ProjectCreated         = "project.created"
	ProjectUpdated         = "project.updated"
	ProjectDeleted         = "project.deleted"
	ProjectEmployeeAdded   = "project.employee_added"
	ProjectEmployeeRemoved = "project.employee_removed"
)

// ProjectChangedPayload 用于 project.created / project.updated
type ProjectChangedPayload struct {
	ProjectID             int64      `json:"project_id"`
	Name                  string     `json:"name"`
	CustomerID            *int64     `json:"customer_id,omitempty"`
	ResponsibleEmployeeID int64      `json:"responsible_employee_id"`
	StartDate             *time.Time `json:"start_date,omitempty"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	Status                string     `json:"status"`
	EmployeeIDs           []int64    `json:"employee_ids"`
	OccurredAt            time.Time  `json:"occurred_at"`
}

type ProjectDeletedPayload struct {
	ProjectID  int64     `json:"project_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProjectMembershipPayload 用于 project.employee_added / project.employee_removed
type ProjectMembershipPayload struct {
	ProjectID  int64     `json:"project_id"`
	EmployeeID int64     `json:"employee_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
