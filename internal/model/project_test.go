package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "PLANNED", want: StatusPlanned},
		{in: "running", want: StatusRunning},
		{in: " Finished ", want: StatusFinished},
		{in: "CANCELLED", want: StatusCancelled},
		{in: "DONE", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{
			name:   "partial overlap",
			aStart: date(2025, 1, 15), aEnd: date(2025, 2, 15),
			bStart: date(2025, 1, 1), bEnd: date(2025, 1, 31),
			want: true,
		},
		{
			name:   "touching endpoints",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 15),
			bStart: date(2025, 1, 15), bEnd: date(2025, 1, 31),
			want: true,
		},
		{
			name:   "touching endpoints reversed",
			aStart: date(2025, 1, 15), aEnd: date(2025, 1, 31),
			bStart: date(2025, 1, 1), bEnd: date(2025, 1, 15),
			want: true,
		},
		{
			name:   "containment",
			aStart: date(2025, 1, 1), aEnd: date(2025, 12, 31),
			bStart: date(2025, 6, 1), bEnd: date(2025, 6, 2),
			want: true,
		},
		{
			name:   "disjoint, one day gap",
			aStart: date(2025, 1, 1), aEnd: date(2025, 1, 14),
			bStart: date(2025, 1, 15), bEnd: date(2025, 1, 31),
			want: false,
		},
		{
			name:   "disjoint, after",
			aStart: date(2025, 3, 1), aEnd: date(2025, 3, 31),
			bStart: date(2025, 1, 1), bEnd: date(2025, 1, 31),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestProject_EmployeeSet(t *testing.T) {
	p := &Project{EmployeeIDs: NormalizeEmployeeIDs([]int64{5, 1, 5, 3})}
	assert.Equal(t, []int64{1, 3, 5}, p.EmployeeIDs)

	assert.True(t, p.HasEmployee(3))
	assert.False(t, p.HasEmployee(4))

	assert.True(t, p.AddEmployee(4))
	assert.False(t, p.AddEmployee(4))
	assert.Equal(t, []int64{1, 3, 4, 5}, p.EmployeeIDs)

	assert.True(t, p.RemoveEmployee(1))
	assert.False(t, p.RemoveEmployee(1))
	assert.Equal(t, []int64{3, 4, 5}, p.EmployeeIDs)
}

func TestNormalizeEmployeeIDs_NeverNil(t *testing.T) {
	assert.Equal(t, []int64{}, NormalizeEmployeeIDs(nil))
}

func TestProject_Clone(t *testing.T) {
	start := date(2025, 1, 1)
	customer := int64(9)
	p := &Project{ID: 1, CustomerID: &customer, StartDate: &start, EmployeeIDs: []int64{1, 2}}

	c := p.Clone()
	c.EmployeeIDs[0] = 99
	*c.CustomerID = 10
	*c.StartDate = date(2030, 1, 1)

	assert.Equal(t, []int64{1, 2}, p.EmployeeIDs)
	assert.Equal(t, int64(9), *p.CustomerID)
	assert.Equal(t, date(2025, 1, 1), *p.StartDate)
	assert.Nil(t, c.EndDate)
}

func TestTruncateDate(t *testing.T) {
	in := time.Date(2025, 1, 15, 13, 45, 0, 0, time.UTC)
	got := TruncateDate(&in)
	require.NotNil(t, got)
	assert.Equal(t, date(2025, 1, 15), *got)
	assert.Nil(t, TruncateDate(nil))
}

func TestProject_IsScheduled(t *testing.T) {
	start := date(2025, 1, 1)
	end := date(2025, 1, 31)

	assert.True(t, (&Project{StartDate: &start, EndDate: &end}).IsScheduled())
	assert.False(t, (&Project{StartDate: &start}).IsScheduled())
	assert.False(t, (&Project{EndDate: &end}).IsScheduled())
}
