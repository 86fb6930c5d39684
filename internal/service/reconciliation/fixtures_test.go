package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/stretchr/testify/require"
)

const testCompanyID = "company-1"

// Monday 15 January 2024.
var testMonday = calendar.Day{Year: 2024, Month: time.January, Day: 15}

func at(day calendar.Day, hour, minute int) time.Time {
	return day.At(hour, minute, time.UTC)
}

func newPunch(kind punch.Kind, ts time.Time) punch.Punch {
	return punch.Punch{EmployeeID: "emp-1", CompanyID: testCompanyID, Kind: kind, Timestamp: ts}
}

func withOrdinal(p punch.Punch, ordinal int) punch.Punch {
	p.SequenceOrdinal = &ordinal
	return p
}

func standardDay(day calendar.Day) []punch.Punch {
	return []punch.Punch{
		newPunch(punch.KindEntry, at(day, 7, 0)),
		newPunch(punch.KindLunchOut, at(day, 12, 0)),
		newPunch(punch.KindLunchIn, at(day, 13, 15)),
		newPunch(punch.KindEnd, at(day, 17, 0)),
	}
}

func testEmployee(id string, flag schedule.Flag) employee.Employee {
	return employee.Employee{
		ID:               id,
		CompanyID:        testCompanyID,
		FullName:         "Employee " + id,
		Role:             employee.RoleEmployee,
		ScheduleFlag:     flag,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
}

// fakePunchRepository is an in-memory punch.PunchRepository safe for concurrent use.
type fakePunchRepository struct {
	mu      sync.Mutex
	punches map[string][]punch.Punch
	nextID  int

	// failFor makes fetches for these employee ids fail.
	failFor map[string]error
	// delay is slept on every fetch, honouring ctx.
	delay time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	fetches     atomic.Int32
}

func newFakePunchRepository() *fakePunchRepository {
	return &fakePunchRepository{
		punches: make(map[string][]punch.Punch),
		failFor: make(map[string]error),
	}
}

func (r *fakePunchRepository) seed(employeeID string, punches ...punch.Punch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range punches {
		r.nextID++
		p.ID = fmt.Sprintf("punch-%d", r.nextID)
		p.EmployeeID = employeeID
		p.CompanyID = testCompanyID
		r.punches[employeeID] = append(r.punches[employeeID], p)
	}
}

func (r *fakePunchRepository) all(employeeID string) []punch.Punch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]punch.Punch(nil), r.punches[employeeID]...)
}

func (r *fakePunchRepository) FetchByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]punch.Punch, error) {
	r.fetches.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.maxInFlight.Load()
		if n <= peak || r.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.failFor[employeeID]; ok {
		return nil, err
	}

	var out []punch.Punch
	for _, p := range r.punches[employeeID] {
		if p.CompanyID != companyID {
			continue
		}
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *fakePunchRepository) GetByID(ctx context.Context, id string, companyID string) (punch.Punch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.punches {
		for _, p := range list {
			if p.ID == id && p.CompanyID == companyID {
				return p, nil
			}
		}
	}
	return punch.Punch{}, punch.ErrPunchNotFound
}

func (r *fakePunchRepository) Insert(ctx context.Context, punches []punch.Punch) ([]punch.Punch, error) {
	if len(punches) == 0 {
		return nil, punch.ErrEmptyInsert
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]punch.Punch, 0, len(punches))
	for _, p := range punches {
		r.nextID++
		p.ID = fmt.Sprintf("punch-%d", r.nextID)
		r.punches[p.EmployeeID] = append(r.punches[p.EmployeeID], p)
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePunchRepository) Delete(ctx context.Context, id string, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for employeeID, list := range r.punches {
		for i, p := range list {
			if p.ID == id && p.CompanyID == companyID {
				r.punches[employeeID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return punch.ErrPunchNotFound
}

type fakeEmployeeRepository struct {
	employees map[string]employee.Employee
	err       error
}

func newFakeEmployeeRepository(employees ...employee.Employee) *fakeEmployeeRepository {
	r := &fakeEmployeeRepository{employees: make(map[string]employee.Employee)}
	for _, e := range employees {
		r.employees[e.ID] = e
	}
	return r
}

func (r *fakeEmployeeRepository) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	if r.err != nil {
		return employee.Employee{}, r.err
	}
	e, ok := r.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepository) ListActive(ctx context.Context, companyID string) ([]employee.Employee, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID && e.EmploymentStatus == employee.EmploymentStatusActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *fakeEmployeeRepository) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, e := range r.employees {
		if _, ok := seen[e.CompanyID]; ok {
			continue
		}
		seen[e.CompanyID] = struct{}{}
		out = append(out, e.CompanyID)
	}
	sort.Strings(out)
	return out, nil
}

var errStoreDown = errors.New("connection refused")

func newTestService(t *testing.T, punches *fakePunchRepository, employees *fakeEmployeeRepository, opts Options) *ReconciliationServiceImpl {
	t.Helper()
	svc := newReconciliationService(punches, employees, schedule.DefaultResolver(), opts)
	svc.now = func() time.Time { return at(testMonday, 18, 0) }
	require.NotNil(t, svc)
	return svc
}
