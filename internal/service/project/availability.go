package project

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
)

// checkEmployeeAvailability fails with *SchedulingConflictError when the
// employee is a member of another dated project whose closed interval
// intersects [start, end]. An undated window never conflicts, and neither do
// projects missing either date.
//
// Only team membership counts here. Being responsible for a project does not
// block an employee from joining another one.
func (s *Service) checkEmployeeAvailability(ctx context.Context, employeeID int64, start, end *time.Time, excludeProjectID int64) error {
	if start == nil || end == nil {
		return nil
	}

	projects, err := s.store.FindProjectsWithEmployeeAsMember(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("failed to load projects of employee %d: %w", employeeID, err)
	}

	for _, other := range projects {
		if other.ID == excludeProjectID || !other.IsScheduled() {
			continue
		}
		if model.Overlaps(*start, *end, *other.StartDate, *other.EndDate) {
			metrics.IncrementSchedulingConflict()
			logger.WithTrace(ctx, s.logger).Info("Scheduling conflict detected",
				zap.Int64("employee_id", employeeID),
				zap.Int64("conflicting_project_id", other.ID),
			)
			return &SchedulingConflictError{
				EmployeeID:  employeeID,
				ProjectID:   other.ID,
				ProjectName: other.Name,
			}
		}
	}
	return nil
}
