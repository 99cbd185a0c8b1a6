package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"projecthub/internal/model"
	projectsvc "projecthub/internal/service/project"
)

var _ projectsvc.Store = (*MemoryProjectRepository)(nil)

// MemoryProjectRepository keeps projects in process memory. It backs
// store.driver=memory and the handler tests. Records are cloned on the way in
// and out, so callers never share state with the store.
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[int64]*model.Project
	nextID   int64
}

func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{
		projects: make(map[int64]*model.Project),
		nextID:   1,
	}
}

func (r *MemoryProjectRepository) Save(_ context.Context, p *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := p.Clone()
	saved.EmployeeIDs = model.NormalizeEmployeeIDs(saved.EmployeeIDs)

	if saved.ID == 0 {
		saved.ID = r.nextID
		r.nextID++
	} else if _, ok := r.projects[saved.ID]; !ok {
		return nil, fmt.Errorf("project %d: %w", saved.ID, projectsvc.ErrNotFound)
	}

	r.projects[saved.ID] = saved
	return saved.Clone(), nil
}

func (r *MemoryProjectRepository) FindByID(_ context.Context, id int64) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, projectsvc.ErrNotFound)
	}
	return p.Clone(), nil
}

func (r *MemoryProjectRepository) FindAll(_ context.Context) ([]*model.Project, error) {
	return r.filter(func(*model.Project) bool { return true }), nil
}

func (r *MemoryProjectRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, projectsvc.ErrNotFound)
	}
	delete(r.projects, id)
	return nil
}

func (r *MemoryProjectRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.projects[id]
	return ok, nil
}

func (r *MemoryProjectRepository) FindProjectsInvolvingEmployee(_ context.Context, employeeID int64) ([]*model.Project, error) {
	return r.filter(func(p *model.Project) bool {
		return p.ResponsibleEmployeeID == employeeID || p.HasEmployee(employeeID)
	}), nil
}

func (r *MemoryProjectRepository) FindProjectsWithEmployeeAsMember(_ context.Context, employeeID int64) ([]*model.Project, error) {
	return r.filter(func(p *model.Project) bool {
		return p.HasEmployee(employeeID)
	}), nil
}

// Ping always succeeds.
func (r *MemoryProjectRepository) Ping(context.Context) error {
	return nil
}

// filter returns clones of matching projects ordered by id.
func (r *MemoryProjectRepository) filter(match func(*model.Project) bool) []*model.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Project) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
