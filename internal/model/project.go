package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusRunning   Status = "RUNNING"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts the enum names case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPlanned, StatusRunning, StatusFinished, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown project status %q", s)
	}
}

// DateLayout is the wire format of project start and end dates.
const DateLayout = "2006-01-02"

// Project is a persisted project record. EmployeeIDs is a set: sorted ascending
// and free of duplicates once normalised.
type Project struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Description           string     `json:"description"`
	CustomerID            *int64     `json:"customer_id,omitempty"`
	ResponsibleEmployeeID int64      `json:"responsible_employee_id"`
	StartDate             *time.Time `json:"start_date,omitempty"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	Status                Status     `json:"status"`
	EmployeeIDs           []int64    `json:"employee_ids"`
}

// HasEmployee reports whether employeeID is a team member.
func (p *Project) HasEmployee(employeeID int64) bool {
	_, found := slices.BinarySearch(p.EmployeeIDs, employeeID)
	return found
}

// AddEmployee inserts employeeID into the team, keeping order. It returns false
// when the employee was already a member.
func (p *Project) AddEmployee(employeeID int64) bool {
	i, found := slices.BinarySearch(p.EmployeeIDs, employeeID)
	if found {
		return false
	}
	p.EmployeeIDs = slices.Insert(p.EmployeeIDs, i, employeeID)
	return true
}

// RemoveEmployee drops employeeID from the team. It returns false when the
// employee was not a member.
func (p *Project) RemoveEmployee(employeeID int64) bool {
	i, found := slices.BinarySearch(p.EmployeeIDs, employeeID)
	if !found {
		return false
	}
	p.EmployeeIDs = slices.Delete(p.EmployeeIDs, i, i+1)
	return true
}

// IsScheduled reports whether both start and end dates are set.
func (p *Project) IsScheduled() bool {
	return p.StartDate != nil && p.EndDate != nil
}

// Clone returns a deep copy so callers never share the employee slice or dates.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.CustomerID = cloneInt64(p.CustomerID)
	c.StartDate = cloneTime(p.StartDate)
	c.EndDate = cloneTime(p.EndDate)
	c.EmployeeIDs = slices.Clone(p.EmployeeIDs)
	if c.EmployeeIDs == nil {
		c.EmployeeIDs = []int64{}
	}
	return &c
}

// ProjectInput is the data a project is created from or fully replaced with.
// Nil pointers and a nil EmployeeIDs slice mean "not provided".
type ProjectInput struct {
	Name                  string
	Description           string
	CustomerID            *int64
	ResponsibleEmployeeID *int64
	StartDate             *time.Time
	EndDate               *time.Time
	Status                *Status
	EmployeeIDs           []int64
}

// ProjectEmployees is the team view of a single project.
type ProjectEmployees struct {
	ProjectID   int64   `json:"project_id"`
	ProjectName string  `json:"project_name"`
	EmployeeIDs []int64 `json:"employee_ids"`
}

// NormalizeEmployeeIDs returns a sorted copy of ids without duplicates. The
// result is never nil.
func NormalizeEmployeeIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	if out == nil {
		return []int64{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// TruncateDate strips the clock part, keeping the calendar date in UTC.
func TruncateDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

// Overlaps reports whether the closed intervals [aStart,aEnd] and [bStart,bEnd]
// intersect. Touching endpoints count as overlapping.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
