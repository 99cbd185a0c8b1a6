package project_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	mqcontracts "projecthub/contracts/mq"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/internal/service/project"
	"projecthub/pkg/metrics"
)

type fakeDirectory struct {
	mu      sync.Mutex
	known   map[int64]bool
	err     error
	lookups []int64
	creds   []string
}

func newFakeDirectory(ids ...int64) *fakeDirectory {
	d := &fakeDirectory{known: map[int64]bool{}}
	for _, id := range ids {
		d.known[id] = true
	}
	return d
}

func (d *fakeDirectory) EmployeeExists(_ context.Context, id int64, credential string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, id)
	d.creds = append(d.creds, credential)
	if d.err != nil {
		return false, d.err
	}
	return d.known[id], nil
}

// countingStore counts writes on top of the in-memory repository.
type countingStore struct {
	*repository.MemoryProjectRepository
	saves int
}

func (s *countingStore) Save(ctx context.Context, p *model.Project) (*model.Project, error) {
	s.saves++
	return s.MemoryProjectRepository.Save(ctx, p)
}

type publishedEvent struct {
	key     string
	payload any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return p.err
}

func (p *fakePublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type fixture struct {
	svc       *project.Service
	store     *countingStore
	directory *fakeDirectory
	events    *fakePublisher
}

func newFixture(t *testing.T, known ...int64) *fixture {
	t.Helper()
	f := &fixture{
		store:     &countingStore{MemoryProjectRepository: repository.NewMemoryProjectRepository()},
		directory: newFakeDirectory(known...),
		events:    &fakePublisher{},
	}
	f.svc = project.NewService(f.store, f.directory, nil, f.events, zap.NewNop())
	return f
}

func ptr[T any](v T) *T { return &v }

func day(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func input(name string, responsible int64, members ...int64) model.ProjectInput {
	return model.ProjectInput{
		Name:                  name,
		ResponsibleEmployeeID: ptr(responsible),
		EmployeeIDs:           members,
	}
}

const cred = "Bearer secret"

func TestService_CreateAndReadBack(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()

	in := input("Apollo", 1, 3, 2, 3)
	in.Description = "moon"
	in.CustomerID = ptr(int64(50))
	in.StartDate = day("2025-01-01")
	in.EndDate = day("2025-03-31")

	created, err := f.svc.Create(ctx, in, cred)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, model.StatusPlanned, created.Status)
	assert.Equal(t, []int64{2, 3}, created.EmployeeIDs)

	other, err := f.svc.Create(ctx, input("Gemini", 1), cred)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)

	got, err := f.svc.ReadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, []int64{}, other.EmployeeIDs)

	// responsible first, then members ascending
	assert.Equal(t, []int64{1, 2, 3, 1}, f.directory.lookups)
	for _, c := range f.directory.creds {
		assert.Equal(t, cred, c)
	}
	assert.Equal(t, []string{mqcontracts.ProjectCreated, mqcontracts.ProjectCreated}, f.events.keys())
}

func TestService_CreateUnknownResponsible(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.svc.Create(context.Background(), input("Apollo", 1, 2), cred)

	require.ErrorIs(t, err, project.ErrEmployeeNotFound)
	var notFound *project.EmployeeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(1), notFound.EmployeeID)
	assert.Zero(t, f.store.saves)
	assert.Empty(t, f.events.events)
}

func TestService_CreateUnknownMemberAbortsWithoutWrite(t *testing.T) {
	f := newFixture(t, 1, 2, 3, 5)

	_, err := f.svc.Create(context.Background(), input("Apollo", 1, 5, 4, 3, 2), cred)

	var notFound *project.EmployeeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(4), notFound.EmployeeID)
	// 2 and 3 were checked before the first unknown id; 5 never was
	assert.Equal(t, []int64{1, 2, 3, 4}, f.directory.lookups)
	assert.Zero(t, f.store.saves)

	all, err := f.svc.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_CreateDirectoryErrorPropagates(t *testing.T) {
	f := newFixture(t, 1)
	boom := errors.New("directory unreachable")
	f.directory.err = boom

	_, err := f.svc.Create(context.Background(), input("Apollo", 1), cred)

	assert.Same(t, boom, err)
	assert.Zero(t, f.store.saves)
}

func TestService_DirectoryErrorIsNotLoggedAgain(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	directory := newFakeDirectory(1)
	directory.err = errors.New("directory unreachable")
	svc := project.NewService(repository.NewMemoryProjectRepository(), directory, nil, nil, zap.New(core))

	_, err := svc.Create(context.Background(), input("Apollo", 1), cred)
	require.Error(t, err)

	// the directory client owns the log line for its failures
	assert.Zero(t, logs.Len())
}

func TestService_DisabledEventsAreNotCountedAsPublished(t *testing.T) {
	disabled := metrics.ProjectEventCount.WithLabelValues(mqcontracts.ProjectCreated, "disabled")
	published := metrics.ProjectEventCount.WithLabelValues(mqcontracts.ProjectCreated, "published")
	disabledBefore := testutil.ToFloat64(disabled)
	publishedBefore := testutil.ToFloat64(published)

	svc := project.NewService(repository.NewMemoryProjectRepository(), newFakeDirectory(1), nil, nil, zap.NewNop())
	_, err := svc.Create(context.Background(), input("Apollo", 1), cred)
	require.NoError(t, err)

	assert.Equal(t, disabledBefore+1, testutil.ToFloat64(disabled))
	assert.Equal(t, publishedBefore, testutil.ToFloat64(published))
}

func TestService_CreateValidation(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name      string
		in        model.ProjectInput
		wantField string
		wantMsg   string
	}{
		{
			name:      "blank name",
			in:        input("   ", 1),
			wantField: "name",
			wantMsg:   "Project name is mandatory and cannot be empty.",
		},
		{
			name:      "long name",
			in:        input(string(long), 1),
			wantField: "name",
			wantMsg:   "Project name must not exceed 255 characters.",
		},
		{
			name:      "missing responsible",
			in:        model.ProjectInput{Name: "Apollo"},
			wantField: "responsibleEmployeeId",
			wantMsg:   "Responsible employee ID is mandatory.",
		},
		{
			name:      "bad status",
			in:        model.ProjectInput{Name: "Apollo", ResponsibleEmployeeID: ptr(int64(1)), Status: ptr(model.Status("DONE"))},
			wantField: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)

			_, err := f.svc.Create(context.Background(), tt.in, cred)

			require.ErrorIs(t, err, project.ErrInvalidInput)
			var verr *project.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, verr.Message)
			}
			// validation happens before any I/O
			assert.Empty(t, f.directory.lookups)
			assert.Zero(t, f.store.saves)
		})
	}
}

func TestService_CustomerValidatorIsConsulted(t *testing.T) {
	store := repository.NewMemoryProjectRepository()
	rejected := errors.New("customer rejected")
	var seen int64
	svc := project.NewService(store, newFakeDirectory(1), project.CustomerValidatorFunc(func(_ context.Context, id int64) error {
		seen = id
		return rejected
	}), nil, zap.NewNop())

	in := input("Apollo", 1)
	in.CustomerID = ptr(int64(77))
	_, err := svc.Create(context.Background(), in, cred)

	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, int64(77), seen)
}

func TestService_UpdateReplacesAllFields(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()

	in := input("Apollo", 1, 2, 3)
	in.Status = ptr(model.StatusRunning)
	in.CustomerID = ptr(int64(9))
	in.StartDate = day("2025-01-01")
	created, err := f.svc.Create(ctx, in, cred)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, created.ID, input("Apollo II", 2), cred)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Apollo II", updated.Name)
	assert.Equal(t, int64(2), updated.ResponsibleEmployeeID)
	assert.Equal(t, model.StatusPlanned, updated.Status)
	assert.Nil(t, updated.CustomerID)
	assert.Nil(t, updated.StartDate)
	assert.Equal(t, []int64{}, updated.EmployeeIDs)

	got, err := f.svc.ReadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, mqcontracts.ProjectUpdated, f.events.keys()[1])
}

func TestService_UpdateMissingProject(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.Update(context.Background(), 99, input("Apollo", 1), cred)

	assert.ErrorIs(t, err, project.ErrNotFound)
	// existence is checked before the directory is called
	assert.Empty(t, f.directory.lookups)
}

func TestService_UpdateUnknownEmployee(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, input("Apollo", 1), cred)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, created.ID, input("Apollo", 1, 8), cred)
	assert.ErrorIs(t, err, project.ErrEmployeeNotFound)

	got, err := f.svc.ReadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	err := f.svc.Delete(ctx, 42)
	assert.ErrorIs(t, err, project.ErrNotFound)

	created, err := f.svc.Create(ctx, input("Apollo", 1), cred)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.ReadByID(ctx, created.ID)
	var notFound *project.ProjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, created.ID, notFound.ProjectID)
	assert.Equal(t, mqcontracts.ProjectDeleted, f.events.keys()[1])
}

func scheduled(name string, responsible int64, start, end string, members ...int64) model.ProjectInput {
	in := input(name, responsible, members...)
	in.StartDate = day(start)
	in.EndDate = day(end)
	return in
}

func TestService_AddEmployeeSchedulingConflict(t *testing.T) {
	f := newFixture(t, 1, 7)
	ctx := context.Background()

	q, err := f.svc.Create(ctx, scheduled("Q", 1, "2025-01-01", "2025-01-31", 7), cred)
	require.NoError(t, err)
	p, err := f.svc.Create(ctx, scheduled("P", 1, "2025-01-15", "2025-02-15"), cred)
	require.NoError(t, err)
	savesBefore := f.store.saves

	_, err = f.svc.AddEmployee(ctx, p.ID, 7, cred)

	require.ErrorIs(t, err, project.ErrSchedulingConflict)
	assert.NotErrorIs(t, err, project.ErrNotFound)
	assert.NotErrorIs(t, err, project.ErrEmployeeNotFound)
	var conflict *project.SchedulingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(7), conflict.EmployeeID)
	assert.Equal(t, q.ID, conflict.ProjectID)
	assert.Equal(t, "Q", conflict.ProjectName)
	assert.Contains(t, err.Error(), "'Q'")

	assert.Equal(t, savesBefore, f.store.saves)
	got, err := f.svc.ReadByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.HasEmployee(7))
}

func TestService_AddEmployeeTouchingEndpointsConflict(t *testing.T) {
	f := newFixture(t, 1, 7)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, scheduled("Q", 1, "2025-01-01", "2025-01-15", 7), cred)
	require.NoError(t, err)
	p, err := f.svc.Create(ctx, scheduled("P", 1, "2025-01-15", "2025-01-31"), cred)
	require.NoError(t, err)

	_, err = f.svc.AddEmployee(ctx, p.ID, 7, cred)
	assert.ErrorIs(t, err, project.ErrSchedulingConflict)
}

func TestService_AddEmployeeNoConflict(t *testing.T) {
	tests := []struct {
		name  string
		other model.ProjectInput
		self  model.ProjectInput
	}{
		{
			name:  "other project without end date",
			other: func() model.ProjectInput { in := input("Q", 1, 7); in.StartDate = day("2025-01-01"); return in }(),
			self:  scheduled("P", 1, "2025-01-15", "2025-02-15"),
		},
		{
			name:  "other project without start date",
			other: func() model.ProjectInput { in := input("Q", 1, 7); in.EndDate = day("2025-01-31"); return in }(),
			self:  scheduled("P", 1, "2025-01-15", "2025-02-15"),
		},
		{
			name:  "target project unscheduled",
			other: scheduled("Q", 1, "2025-01-01", "2025-01-31", 7),
			self:  input("P", 1),
		},
		{
			name:  "disjoint dates",
			other: scheduled("Q", 1, "2025-01-01", "2025-01-14", 7),
			self:  scheduled("P", 1, "2025-01-15", "2025-02-15"),
		},
		{
			name:  "responsible elsewhere is not a conflict",
			other: scheduled("Q", 7, "2025-01-01", "2025-01-31"),
			self:  scheduled("P", 1, "2025-01-15", "2025-02-15"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1, 7)
			ctx := context.Background()

			_, err := f.svc.Create(ctx, tt.other, cred)
			require.NoError(t, err)
			p, err := f.svc.Create(ctx, tt.self, cred)
			require.NoError(t, err)

			got, err := f.svc.AddEmployee(ctx, p.ID, 7, cred)
			require.NoError(t, err)
			assert.Equal(t, []int64{7}, got.EmployeeIDs)
		})
	}
}

func TestService_AddEmployeeIdempotent(t *testing.T) {
	f := newFixture(t, 1, 7)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, scheduled("P", 1, "2025-01-01", "2025-01-31", 7), cred)
	require.NoError(t, err)
	savesBefore := f.store.saves
	eventsBefore := len(f.events.events)

	got, err := f.svc.AddEmployee(ctx, p.ID, 7, cred)

	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, savesBefore, f.store.saves)
	assert.Len(t, f.events.events, eventsBefore)
}

func TestService_AddEmployeeErrors(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.AddEmployee(ctx, 99, 1, cred)
	assert.ErrorIs(t, err, project.ErrNotFound)

	p, err := f.svc.Create(ctx, input("P", 1), cred)
	require.NoError(t, err)

	_, err = f.svc.AddEmployee(ctx, p.ID, 8, cred)
	assert.ErrorIs(t, err, project.ErrEmployeeNotFound)

	_, err = f.svc.AddEmployee(ctx, p.ID, 0, cred)
	assert.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestService_AddEmployeePublishes(t *testing.T) {
	f := newFixture(t, 1, 7)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("P", 1), cred)
	require.NoError(t, err)

	_, err = f.svc.AddEmployee(ctx, p.ID, 7, cred)
	require.NoError(t, err)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, mqcontracts.ProjectEmployeeAdded, last.key)
	payload, ok := last.payload.(mqcontracts.ProjectMembershipPayload)
	require.True(t, ok)
	assert.Equal(t, p.ID, payload.ProjectID)
	assert.Equal(t, int64(7), payload.EmployeeID)
}

func TestService_PublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t, 1)
	f.events.err = errors.New("broker down")

	created, err := f.svc.Create(context.Background(), input("P", 1), cred)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestService_RemoveEmployee(t *testing.T) {
	f := newFixture(t, 1, 7)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("P", 1, 7), cred)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveEmployee(ctx, p.ID, 7))

	got, err := f.svc.ReadByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got.EmployeeIDs)

	// second removal is an error, unlike a repeated add
	err = f.svc.RemoveEmployee(ctx, p.ID, 7)
	require.ErrorIs(t, err, project.ErrAssignmentNotFound)
	assert.ErrorIs(t, err, project.ErrNotFound)

	err = f.svc.RemoveEmployee(ctx, 99, 7)
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.NotErrorIs(t, err, project.ErrAssignmentNotFound)
}

func TestService_EmployeesOf(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("P", 1, 3, 2), cred)
	require.NoError(t, err)

	team, err := f.svc.EmployeesOf(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.ProjectEmployees{ProjectID: p.ID, ProjectName: "P", EmployeeIDs: []int64{2, 3}}, team)

	_, err = f.svc.EmployeesOf(ctx, 99)
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestService_ProjectsOf(t *testing.T) {
	f := newFixture(t, 1, 2, 5)
	ctx := context.Background()

	lead, err := f.svc.Create(ctx, input("Lead", 5), cred)
	require.NoError(t, err)
	member, err := f.svc.Create(ctx, input("Member", 1, 5), cred)
	require.NoError(t, err)
	both, err := f.svc.Create(ctx, input("Both", 5, 5, 2), cred)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, input("Unrelated", 1, 2), cred)
	require.NoError(t, err)

	projects, err := f.svc.ProjectsOf(ctx, 5)
	require.NoError(t, err)

	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{lead.ID, member.ID, both.ID}, ids)

	none, err := f.svc.ProjectsOf(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, none)
}
