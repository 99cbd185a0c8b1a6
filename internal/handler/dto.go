package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"projecthub/internal/model"
)

// Date is a calendar date encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string in %s format", model.DateLayout)
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected %s", s, model.DateLayout)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(model.DateLayout))
}

func toDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

func fromDate(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// ProjectRequest is the body of create and update.
type ProjectRequest struct {
	Name                  string  `json:"name"`
	Description           string  `json:"description"`
	CustomerID            *int64  `json:"customerId"`
	ResponsibleEmployeeID *int64  `json:"responsibleEmployeeId"`
	StartDate             *Date   `json:"startDate"`
	EndDate               *Date   `json:"endDate"`
	Status                *string `json:"status"`
	EmployeeIDs           []int64 `json:"employeeIds"`
}

func (r ProjectRequest) toInput() model.ProjectInput {
	in := model.ProjectInput{
		Name:                  r.Name,
		Description:           r.Description,
		CustomerID:            r.CustomerID,
		ResponsibleEmployeeID: r.ResponsibleEmployeeID,
		StartDate:             fromDate(r.StartDate),
		EndDate:               fromDate(r.EndDate),
		EmployeeIDs:           r.EmployeeIDs,
	}
	if r.Status != nil {
		st := model.Status(*r.Status)
		in.Status = &st
	}
	return in
}

type AddEmployeeRequest struct {
	EmployeeID *int64 `json:"employeeId"`
}

type ProjectResponse struct {
	ID                    int64   `json:"id"`
	Name                  string  `json:"name"`
	Description           string  `json:"description"`
	CustomerID            *int64  `json:"customerId"`
	ResponsibleEmployeeID int64   `json:"responsibleEmployeeId"`
	StartDate             *Date   `json:"startDate"`
	EndDate               *Date   `json:"endDate"`
	Status                string  `json:"status"`
	EmployeeIDs           []int64 `json:"employeeIds"`
}

func toProjectResponse(p *model.Project) ProjectResponse {
	ids := p.EmployeeIDs
	if ids == nil {
		ids = []int64{}
	}
	return ProjectResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Description:           p.Description,
		CustomerID:            p.CustomerID,
		ResponsibleEmployeeID: p.ResponsibleEmployeeID,
		StartDate:             toDate(p.StartDate),
		EndDate:               toDate(p.EndDate),
		Status:                string(p.Status),
		EmployeeIDs:           ids,
	}
}

func toProjectResponses(projects []*model.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	return out
}

type ProjectEmployeesResponse struct {
	ProjectID   int64   `json:"projectId"`
	ProjectName string  `json:"projectName"`
	EmployeeIDs []int64 `json:"employeeIds"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
}
