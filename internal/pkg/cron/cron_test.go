package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubDirectory struct {
	byCompany map[string][]employee.Employee
	listErr   error
}

func (d *stubDirectory) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	for _, emp := range d.byCompany[companyID] {
		if emp.ID == id {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (d *stubDirectory) ListActive(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return d.byCompany[companyID], nil
}

func (d *stubDirectory) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return []string{"c1", "c2"}, nil
}

type recordingNormalizer struct {
	mu     sync.Mutex
	calls  []string
	days   []calendar.Day
	failOn map[string]bool
}

func (n *recordingNormalizer) NormalizeEmployeeDay(ctx context.Context, emp employee.Employee, day calendar.Day) ([]punch.Punch, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, emp.ID)
	n.days = append(n.days, day)
	if n.failOn[emp.ID] {
		return nil, errors.New("store down")
	}
	return []punch.Punch{{EmployeeID: emp.ID}}, nil
}

func newDirectory() *stubDirectory {
	return &stubDirectory{byCompany: map[string][]employee.Employee{
		"c1": {{ID: "e1", CompanyID: "c1"}, {ID: "e2", CompanyID: "c1"}},
		"c2": {{ID: "e3", CompanyID: "c2"}},
	}}
}

func TestNormalizePreviousBusinessDay(t *testing.T) {
	norm := &recordingNormalizer{}
	jobs := NewNormalizationJobs(norm, newDirectory(), time.UTC, discard)
	// Monday 15 January 2024; the previous business day is Friday the 12th.
	jobs.now = func() time.Time { return time.Date(2024, time.January, 15, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, jobs.NormalizePreviousBusinessDay(context.Background()))
	assert.Equal(t, []string{"e1", "e2", "e3"}, norm.calls)
	for _, d := range norm.days {
		assert.Equal(t, "2024-01-12", d.String())
	}

	// Same target day: nothing to do.
	require.NoError(t, jobs.NormalizePreviousBusinessDay(context.Background()))
	assert.Len(t, norm.calls, 3)
}

func TestNormalizePreviousBusinessDay_UsesLocalDay(t *testing.T) {
	norm := &recordingNormalizer{}
	loc := time.FixedZone("UTC+9", 9*60*60)
	jobs := NewNormalizationJobs(norm, newDirectory(), loc, discard)
	// Tuesday 16 January 2024 00:30 local is still Monday in UTC.
	jobs.now = func() time.Time { return time.Date(2024, time.January, 15, 15, 30, 0, 0, time.UTC) }

	require.NoError(t, jobs.NormalizePreviousBusinessDay(context.Background()))
	require.NotEmpty(t, norm.days)
	assert.Equal(t, "2024-01-15", norm.days[0].String())
}

func TestNormalizePreviousBusinessDay_FailuresDoNotStopTheJob(t *testing.T) {
	norm := &recordingNormalizer{failOn: map[string]bool{"e1": true}}
	jobs := NewNormalizationJobs(norm, newDirectory(), time.UTC, discard)
	jobs.now = func() time.Time { return time.Date(2024, time.January, 16, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, jobs.NormalizePreviousBusinessDay(context.Background()))
	assert.Equal(t, []string{"e1", "e2", "e3"}, norm.calls)

	// The failed day is attempted again on the next tick.
	require.NoError(t, jobs.NormalizePreviousBusinessDay(context.Background()))
	assert.Len(t, norm.calls, 6)
}

func TestNormalizePreviousBusinessDay_DirectoryDown(t *testing.T) {
	dir := newDirectory()
	dir.listErr = errors.New("connection refused")
	jobs := NewNormalizationJobs(&recordingNormalizer{}, dir, time.UTC, discard)

	assert.Error(t, jobs.NormalizePreviousBusinessDay(context.Background()))
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(discard)
	var ran []string
	s.AddJob("first", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "first")
		return errors.New("boom")
	})
	s.AddJob("second", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "second")
		return nil
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first: boom")
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler(discard)
	started := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}
