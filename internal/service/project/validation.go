package project

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"projecthub/internal/model"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 2000
)

// ValidateInput checks the structure of create/update data. The first
// violation wins, in field order.
func ValidateInput(in model.ProjectInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Code: "NOT_BLANK", Message: "Project name is mandatory and cannot be empty."}
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Code: "SIZE", Message: "Project name must not exceed 255 characters."}
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Code: "SIZE", Message: "Description must not exceed 2000 characters."}
	}
	if in.ResponsibleEmployeeID == nil {
		return &ValidationError{Field: "responsibleEmployeeId", Code: "NOT_NULL", Message: "Responsible employee ID is mandatory."}
	}
	if *in.ResponsibleEmployeeID <= 0 {
		return invalidID("responsibleEmployeeId", *in.ResponsibleEmployeeID)
	}
	if in.CustomerID != nil && *in.CustomerID <= 0 {
		return invalidID("customerId", *in.CustomerID)
	}
	for _, id := range in.EmployeeIDs {
		if id <= 0 {
			return invalidID("employeeIds", id)
		}
	}
	if in.Status != nil {
		if _, err := model.ParseStatus(string(*in.Status)); err != nil {
			return &ValidationError{Field: "status", Code: "INVALID_ENUM", Message: err.Error()}
		}
	}
	return nil
}

// ValidateEmployeeID checks a single employee id passed to the team operations.
func ValidateEmployeeID(employeeID int64) error {
	if employeeID <= 0 {
		return invalidID("employeeId", employeeID)
	}
	return nil
}

func invalidID(field string, id int64) *ValidationError {
	return &ValidationError{Field: field, Code: "INVALID_ID", Message: fmt.Sprintf("%d is not a valid id", id)}
}
