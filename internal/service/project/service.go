package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	mqcontracts "projecthub/contracts/mq"
	"projecthub/internal/model"
	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
	"projecthub/pkg/otel"
)

// Store persists projects and their team sets.
//
// Save inserts when p.ID is zero and replaces the stored record otherwise.
// FindByID and DeleteByID return an error matching ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, p *model.Project) (*model.Project, error)
	FindByID(ctx context.Context, id int64) (*model.Project, error)
	FindAll(ctx context.Context) ([]*model.Project, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// FindProjectsInvolvingEmployee returns projects where the employee is
	// responsible or a team member.
	FindProjectsInvolvingEmployee(ctx context.Context, employeeID int64) ([]*model.Project, error)
	// FindProjectsWithEmployeeAsMember returns projects whose team contains the employee.
	FindProjectsWithEmployeeAsMember(ctx context.Context, employeeID int64) ([]*model.Project, error)
}

// EmployeeDirectory answers whether an employee exists. credential is forwarded
// verbatim to the directory. A false result with nil error means "not found";
// any error is a transport failure.
type EmployeeDirectory interface {
	EmployeeExists(ctx context.Context, employeeID int64, credential string) (bool, error)
}

// EventPublisher emits domain events after successful mutations.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Service struct {
	store     Store
	directory EmployeeDirectory
	customers CustomerValidator
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the project engine. customers and events may be nil: a
// logging customer validator is used, and events are counted as disabled
// instead of being published.
func NewService(store Store, directory EmployeeDirectory, customers CustomerValidator, events EventPublisher, logger *zap.Logger) *Service {
	if customers == nil {
		customers = NewLoggingCustomerValidator(logger)
	}
	return &Service{
		store:     store,
		directory: directory,
		customers: customers,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates in and stores it as a new project.
func (s *Service) Create(ctx context.Context, in model.ProjectInput, credential string) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.Create")
	defer span.End()
	log := logger.WithTrace(ctx, s.logger)

	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if err := s.validateReferences(ctx, in, credential); err != nil {
		recordError(span, err)
		return nil, err
	}

	saved, err := s.store.Save(ctx, buildProject(0, in))
	if err != nil {
		log.Error("Failed to save project", zap.Error(err))
		recordError(span, err)
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	span.SetAttributes(attribute.Int64("project.id", saved.ID))

	log.Info("Project created",
		zap.Int64("project_id", saved.ID),
		zap.String("name", saved.Name),
		zap.Int("team_size", len(saved.EmployeeIDs)),
	)
	s.publish(ctx, mqcontracts.ProjectCreated, changedPayload(saved, s.now()))
	return saved, nil
}

// ReadAll returns every project ordered by id.
func (s *Service) ReadAll(ctx context.Context) ([]*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.ReadAll")
	defer span.End()

	projects, err := s.store.FindAll(ctx)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ReadByID returns the project with the given id.
func (s *Service) ReadByID(ctx context.Context, id int64) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.ReadByID")
	defer span.End()
	span.SetAttributes(attribute.Int64("project.id", id))

	p, err := s.load(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return p, nil
}

// Update replaces every field of project id with in. Fields absent from in are
// reset: status falls back to PLANNED and the team becomes empty.
func (s *Service) Update(ctx context.Context, id int64, in model.ProjectInput, credential string) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("project.id", id))
	log := logger.WithTrace(ctx, s.logger)

	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if err := s.validateReferences(ctx, in, credential); err != nil {
		recordError(span, err)
		return nil, err
	}

	saved, err := s.store.Save(ctx, buildProject(existing.ID, in))
	if err != nil {
		log.Error("Failed to update project", zap.Int64("project_id", id), zap.Error(err))
		recordError(span, err)
		return nil, s.mapStoreError(id, err, "failed to update project")
	}

	log.Info("Project updated", zap.Int64("project_id", saved.ID))
	s.publish(ctx, mqcontracts.ProjectUpdated, changedPayload(saved, s.now()))
	return saved, nil
}

// Delete removes project id together with its team set.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.StartSpan(ctx, "project.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("project.id", id))
	log := logger.WithTrace(ctx, s.logger)

	exists, err := s.store.ExistsByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to check project existence: %w", err)
	}
	if !exists {
		return &ProjectNotFoundError{ProjectID: id}
	}

	if err := s.store.DeleteByID(ctx, id); err != nil {
		log.Error("Failed to delete project", zap.Int64("project_id", id), zap.Error(err))
		recordError(span, err)
		return s.mapStoreError(id, err, "failed to delete project")
	}

	log.Info("Project deleted", zap.Int64("project_id", id))
	s.publish(ctx, mqcontracts.ProjectDeleted, mqcontracts.ProjectDeletedPayload{
		ProjectID:  id,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// AddEmployee puts employeeID on the team of project projectID. Adding an
// existing member returns the project unchanged.
func (s *Service) AddEmployee(ctx context.Context, projectID, employeeID int64, credential string) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.AddEmployee")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("project.id", projectID),
		attribute.Int64("employee.id", employeeID),
	)
	log := logger.WithTrace(ctx, s.logger)

	if err := ValidateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, projectID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if err := s.validateEmployeeExists(ctx, employeeID, credential); err != nil {
		recordError(span, err)
		return nil, err
	}
	if err := s.checkEmployeeAvailability(ctx, employeeID, p.StartDate, p.EndDate, p.ID); err != nil {
		recordError(span, err)
		return nil, err
	}

	if !p.AddEmployee(employeeID) {
		log.Debug("Employee already assigned to project",
			zap.Int64("project_id", projectID),
			zap.Int64("employee_id", employeeID),
		)
		return p, nil
	}

	saved, err := s.store.Save(ctx, p)
	if err != nil {
		log.Error("Failed to add employee to project",
			zap.Int64("project_id", projectID),
			zap.Int64("employee_id", employeeID),
			zap.Error(err),
		)
		recordError(span, err)
		return nil, s.mapStoreError(projectID, err, "failed to add employee")
	}

	log.Info("Employee added to project",
		zap.Int64("project_id", projectID),
		zap.Int64("employee_id", employeeID),
	)
	s.publish(ctx, mqcontracts.ProjectEmployeeAdded, mqcontracts.ProjectMembershipPayload{
		ProjectID:  projectID,
		EmployeeID: employeeID,
		OccurredAt: s.now().UTC(),
	})
	return saved, nil
}

// RemoveEmployee takes employeeID off the team of project projectID.
func (s *Service) RemoveEmployee(ctx context.Context, projectID, employeeID int64) error {
	ctx, span := otel.StartSpan(ctx, "project.RemoveEmployee")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("project.id", projectID),
		attribute.Int64("employee.id", employeeID),
	)
	log := logger.WithTrace(ctx, s.logger)

	p, err := s.load(ctx, projectID)
	if err != nil {
		recordError(span, err)
		return err
	}
	if !p.RemoveEmployee(employeeID) {
		return &AssignmentNotFoundError{ProjectID: projectID, EmployeeID: employeeID}
	}

	if _, err := s.store.Save(ctx, p); err != nil {
		log.Error("Failed to remove employee from project",
			zap.Int64("project_id", projectID),
			zap.Int64("employee_id", employeeID),
			zap.Error(err),
		)
		recordError(span, err)
		return s.mapStoreError(projectID, err, "failed to remove employee")
	}

	log.Info("Employee removed from project",
		zap.Int64("project_id", projectID),
		zap.Int64("employee_id", employeeID),
	)
	s.publish(ctx, mqcontracts.ProjectEmployeeRemoved, mqcontracts.ProjectMembershipPayload{
		ProjectID:  projectID,
		EmployeeID: employeeID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// EmployeesOf returns the team of project projectID.
func (s *Service) EmployeesOf(ctx context.Context, projectID int64) (*model.ProjectEmployees, error) {
	ctx, span := otel.StartSpan(ctx, "project.EmployeesOf")
	defer span.End()

	p, err := s.load(ctx, projectID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return &model.ProjectEmployees{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		EmployeeIDs: p.EmployeeIDs,
	}, nil
}

// ProjectsOf returns every project where employeeID is responsible or a member.
// The directory is not consulted: unknown employees simply have no projects.
func (s *Service) ProjectsOf(ctx context.Context, employeeID int64) ([]*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.ProjectsOf")
	defer span.End()
	span.SetAttributes(attribute.Int64("employee.id", employeeID))

	projects, err := s.store.FindProjectsInvolvingEmployee(ctx, employeeID)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list projects of employee %d: %w", employeeID, err)
	}
	return projects, nil
}

func (s *Service) load(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ProjectNotFoundError{ProjectID: id}
		}
		return nil, fmt.Errorf("failed to load project %d: %w", id, err)
	}
	return p, nil
}

// mapStoreError keeps a not-found from the store (a concurrent delete) as a
// project not-found and wraps everything else.
func (s *Service) mapStoreError(id int64, err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return &ProjectNotFoundError{ProjectID: id}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// validateReferences checks the responsible employee, then every team member in
// ascending order, then the customer. The first failure wins.
func (s *Service) validateReferences(ctx context.Context, in model.ProjectInput, credential string) error {
	if err := s.validateEmployeeExists(ctx, *in.ResponsibleEmployeeID, credential); err != nil {
		return err
	}
	for _, id := range model.NormalizeEmployeeIDs(in.EmployeeIDs) {
		if err := s.validateEmployeeExists(ctx, id, credential); err != nil {
			return err
		}
	}
	if in.CustomerID != nil {
		if err := s.customers.Validate(ctx, *in.CustomerID); err != nil {
			return err
		}
	}
	return nil
}

// validateEmployeeExists returns directory errors unchanged; the directory
// client already logs them.
func (s *Service) validateEmployeeExists(ctx context.Context, employeeID int64, credential string) error {
	exists, err := s.directory.EmployeeExists(ctx, employeeID, credential)
	if err != nil {
		return err
	}
	if !exists {
		return &EmployeeNotFoundError{EmployeeID: employeeID}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if s.events == nil {
		metrics.IncrementProjectEvent(routingKey, "disabled")
		return
	}
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish project event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		metrics.IncrementProjectEvent(routingKey, "failed")
		return
	}
	metrics.IncrementProjectEvent(routingKey, "published")
}

// buildProject turns validated input into a project record with id.
func buildProject(id int64, in model.ProjectInput) *model.Project {
	status := model.StatusPlanned
	if in.Status != nil {
		status, _ = model.ParseStatus(string(*in.Status))
	}
	return &model.Project{
		ID:                    id,
		Name:                  in.Name,
		Description:           in.Description,
		CustomerID:            in.CustomerID,
		ResponsibleEmployeeID: *in.ResponsibleEmployeeID,
		StartDate:             model.TruncateDate(in.StartDate),
		EndDate:               model.TruncateDate(in.EndDate),
		Status:                status,
		EmployeeIDs:           model.NormalizeEmployeeIDs(in.EmployeeIDs),
	}
}

func changedPayload(p *model.Project, at time.Time) mqcontracts.ProjectChangedPayload {
	return mqcontracts.ProjectChangedPayload{
		ProjectID:             p.ID,
		Name:                  p.Name,
		CustomerID:            p.CustomerID,
		ResponsibleEmployeeID: p.ResponsibleEmployeeID,
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		Status:                string(p.Status),
		EmployeeIDs:           p.EmployeeIDs,
		OccurredAt:            at.UTC(),
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

