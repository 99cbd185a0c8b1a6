package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"projecthub/internal/model"
	projectsvc "projecthub/internal/service/project"
	"projecthub/pkg/otel"
)

var _ projectsvc.Store = (*ProjectRepository)(nil)

// 团队成员聚合成有序数组，没有成员时返回空数组而不是 NULL
const selectProjects = `
    SELECT
        p.id,
        p.name,
        p.description,
        p.customer_id,
        p.responsible_employee_id,
        p.start_date,
        p.end_date,
        p.status,
        COALESCE(
            array_agg(pe.employee_id ORDER BY pe.employee_id) FILTER (WHERE pe.employee_id IS NOT NULL),
            '{}'
        ) AS employee_ids
    FROM projects p
    LEFT JOIN project_employees pe ON pe.project_id = p.id
`

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts p when p.ID is zero, otherwise replaces the row and its team set.
// Both happen in one transaction.
func (r *ProjectRepository) Save(ctx context.Context, p *model.Project) (*model.Project, error) {
	r.logger.Debug("Saving project",
		zap.Int64("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("team_size", len(p.EmployeeIDs)),
	)

	saved := p.Clone()
	saved.EmployeeIDs = model.NormalizeEmployeeIDs(saved.EmployeeIDs)

	op := "update"
	if saved.ID == 0 {
		op = "insert"
	}

	err := otel.DBOperation(ctx, op, "projects", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			if saved.ID == 0 {
				id, err := insertProject(ctx, tx, saved)
				if err != nil {
					return err
				}
				saved.ID = id
			} else if err := updateProject(ctx, tx, saved); err != nil {
				return err
			}
			return replaceEmployees(ctx, tx, saved.ID, saved.EmployeeIDs)
		})
	})
	if err != nil {
		if errors.Is(err, projectsvc.ErrNotFound) {
			return nil, err
		}
		r.logger.Error("Failed to save project", zap.Int64("id", p.ID), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Project saved successfully",
		zap.Int64("id", saved.ID),
		zap.String("operation", op),
	)
	return saved, nil
}

func insertProject(ctx context.Context, tx pgx.Tx, p *model.Project) (int64, error) {
	query := `
        INSERT INTO projects (name, description, customer_id, responsible_employee_id, start_date, end_date, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int64
	err := tx.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.CustomerID,
		p.ResponsibleEmployeeID,
		p.StartDate,
		p.EndDate,
		string(p.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return id, nil
}

func updateProject(ctx context.Context, tx pgx.Tx, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $1,
            description = $2,
            customer_id = $3,
            responsible_employee_id = $4,
            start_date = $5,
            end_date = $6,
            status = $7,
            updated_at = NOW()
        WHERE id = $8
    `
	tag, err := tx.Exec(ctx, query,
		p.Name,
		p.Description,
		p.CustomerID,
		p.ResponsibleEmployeeID,
		p.StartDate,
		p.EndDate,
		string(p.Status),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %d: %w", p.ID, projectsvc.ErrNotFound)
	}
	return nil
}

func replaceEmployees(ctx context.Context, tx pgx.Tx, projectID int64, employeeIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM project_employees WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("clear project employees: %w", err)
	}
	if len(employeeIDs) == 0 {
		return nil
	}

	query := `
        INSERT INTO project_employees (project_id, employee_id)
        SELECT $1, unnest($2::bigint[])
    `
	if _, err := tx.Exec(ctx, query, projectID, employeeIDs); err != nil {
		return fmt.Errorf("insert project employees: %w", err)
	}
	return nil
}

// FindByID returns the project or an error matching projectsvc.ErrNotFound.
func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	r.logger.Debug("Finding project by ID", zap.Int64("id", id))

	var p *model.Project
	err := otel.DBOperation(ctx, "select", "projects", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, selectProjects+`WHERE p.id = $1 GROUP BY p.id`, id)
		if err != nil {
			return err
		}
		p, err = pgx.CollectExactlyOneRow(rows, scanProject)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Project not found", zap.Int64("id", id))
			return nil, fmt.Errorf("project %d: %w", id, projectsvc.ErrNotFound)
		}
		r.logger.Error("Failed to find project", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepository) FindAll(ctx context.Context) ([]*model.Project, error) {
	r.logger.Debug("Listing projects")
	return r.list(ctx, "select_all", selectProjects+`GROUP BY p.id ORDER BY p.id`)
}

func (r *ProjectRepository) FindProjectsInvolvingEmployee(ctx context.Context, employeeID int64) ([]*model.Project, error) {
	r.logger.Debug("Listing projects involving employee", zap.Int64("employee_id", employeeID))

	query := selectProjects + `
    WHERE p.responsible_employee_id = $1
       OR EXISTS (
            SELECT 1 FROM project_employees m
            WHERE m.project_id = p.id AND m.employee_id = $1
       )
    GROUP BY p.id
    ORDER BY p.id
    `
	return r.list(ctx, "select_by_employee", query, employeeID)
}

func (r *ProjectRepository) FindProjectsWithEmployeeAsMember(ctx context.Context, employeeID int64) ([]*model.Project, error) {
	r.logger.Debug("Listing projects with employee as member", zap.Int64("employee_id", employeeID))

	query := selectProjects + `
    WHERE EXISTS (
            SELECT 1 FROM project_employees m
            WHERE m.project_id = p.id AND m.employee_id = $1
    )
    GROUP BY p.id
    ORDER BY p.id
    `
	return r.list(ctx, "select_by_member", query, employeeID)
}

func (r *ProjectRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Project, error) {
	var projects []*model.Project
	err := otel.DBOperation(ctx, op, "projects", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		projects, err = pgx.CollectRows(rows, scanProject)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to list projects", zap.String("operation", op), zap.Error(err))
		return nil, err
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	return projects, nil
}

// DeleteByID removes the project; project_employees rows go with it via ON DELETE CASCADE.
func (r *ProjectRepository) DeleteByID(ctx context.Context, id int64) error {
	r.logger.Debug("Deleting project", zap.Int64("id", id))

	var affected int64
	err := otel.DBOperation(ctx, "delete", "projects", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project %d: %w", id, projectsvc.ErrNotFound)
	}

	r.logger.Info("Project deleted successfully", zap.Int64("id", id))
	return nil
}

func (r *ProjectRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := otel.DBOperation(ctx, "exists", "projects", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists)
	})
	if err != nil {
		r.logger.Error("Failed to check project existence", zap.Int64("id", id), zap.Error(err))
		return false, err
	}
	return exists, nil
}

// Ping reports whether the database is reachable.
func (r *ProjectRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanProject(row pgx.CollectableRow) (*model.Project, error) {
	var (
		p      model.Project
		status string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CustomerID,
		&p.ResponsibleEmployeeID,
		&p.StartDate,
		&p.EndDate,
		&status,
		&p.EmployeeIDs,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.Status(status)
	if p.EmployeeIDs == nil {
		p.EmployeeIDs = []int64{}
	}
	return &p, nil
}
