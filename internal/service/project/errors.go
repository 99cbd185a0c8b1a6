package project

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by Service that belongs to one of these
// kinds matches it with errors.Is; anything else is an unexpected failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrAssignmentNotFound = fmt.Errorf("employee assignment %w", ErrNotFound)
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrInvalidInput       = errors.New("invalid input")
)

// ProjectNotFoundError reports a project id with no stored project.
type ProjectNotFoundError struct {
	ProjectID int64
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project with id %d not found", e.ProjectID)
}

func (e *ProjectNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AssignmentNotFoundError reports removal of an employee that is not on the team.
type AssignmentNotFoundError struct {
	ProjectID  int64
	EmployeeID int64
}

func (e *AssignmentNotFoundError) Error() string {
	return fmt.Sprintf("employee with id %d is not assigned to project with id %d", e.EmployeeID, e.ProjectID)
}

func (e *AssignmentNotFoundError) Is(target error) bool {
	return target == ErrAssignmentNotFound || target == ErrNotFound
}

// EmployeeNotFoundError reports an employee id the directory does not know.
type EmployeeNotFoundError struct {
	EmployeeID int64
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee with id %d not found", e.EmployeeID)
}

func (e *EmployeeNotFoundError) Is(target error) bool {
	return target == ErrEmployeeNotFound
}

// SchedulingConflictError names the first project whose dates collide with the
// project an employee was being added to.
type SchedulingConflictError struct {
	EmployeeID  int64
	ProjectID   int64
	ProjectName string
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("employee with id %d is already scheduled in project '%s' during this timeframe",
		e.EmployeeID, e.ProjectName)
}

func (e *SchedulingConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// ValidationError is a structural input error detected before any I/O.
type ValidationError struct {
	Field   string // name, description, responsibleEmployeeId, employeeIds, employeeId, status
	Code    string // NOT_BLANK, NOT_NULL, SIZE, INVALID_ID, INVALID_ENUM
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
