package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/repository/sqlite"
	punchService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/punch"
	reconciliationService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/reconciliation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handlerTestSecret = "test-secret-key-for-jwt"
	handlerCompanyID  = "0190a1b2-0000-7000-8000-00000000000a"
)

// flakyPunchRepository fails fetches while down is set.
type flakyPunchRepository struct {
	punch.PunchRepository
	down bool
}

func (r *flakyPunchRepository) FetchByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]punch.Punch, error) {
	if r.down {
		return nil, errors.New("connection refused")
	}
	return r.PunchRepository.FetchByEmployeeAndRange(ctx, employeeID, from, to, companyID)
}

type testServer struct {
	router  http.Handler
	jwt     jwt.Service
	punches *flakyPunchRepository
	hub     *sse.Hub
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	employees := sqlite.NewEmployeeRepository(db, database.NoRetry)
	for _, emp := range []employee.Employee{
		{ID: "emp-1", FullName: "Ana", Role: employee.RoleEmployee, ScheduleFlag: schedule.FlagStandard},
		{ID: "emp-2", FullName: "Bruno", Role: employee.RoleEmployee, ScheduleFlag: schedule.FlagReduced},
		{ID: "mgr-1", FullName: "Carla", Role: employee.RoleManager, ScheduleFlag: schedule.FlagStandard},
		{ID: "emp-x", FullName: "Xavier", Role: employee.RoleEmployee, ScheduleFlag: schedule.Flag("contractor")},
	} {
		emp.CompanyID = handlerCompanyID
		emp.EmployeeCode = "EMP-" + emp.ID
		emp.EmploymentStatus = employee.EmploymentStatusActive
		require.NoError(t, employees.Upsert(ctx, emp))
	}

	punches := &flakyPunchRepository{PunchRepository: sqlite.NewPunchRepository(db, database.NoRetry)}
	_, err = punches.Insert(ctx, []punch.Punch{
		{EmployeeID: "emp-1", CompanyID: handlerCompanyID, Timestamp: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC), Kind: punch.KindEntry},
		{EmployeeID: "emp-1", CompanyID: handlerCompanyID, Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), Kind: punch.KindLunchOut},
		{EmployeeID: "emp-1", CompanyID: handlerCompanyID, Timestamp: time.Date(2024, 1, 15, 13, 15, 0, 0, time.UTC), Kind: punch.KindLunchIn},
		{EmployeeID: "emp-1", CompanyID: handlerCompanyID, Timestamp: time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC), Kind: punch.KindEnd},
	})
	require.NoError(t, err)

	registry := metrics.NewRegistry()
	reconSvc := reconciliationService.NewReconciliationService(punches, employees, schedule.DefaultResolver(), reconciliationService.Options{
		Workers: 2,
		Metrics: registry,
	})
	hub := sse.NewHub(8)
	punchSvc := punchService.NewPunchService(punches, employees, time.UTC, hub)

	jwtSvc := jwt.NewJWTService(handlerTestSecret, "1h")
	router := NewRouter(jwtSvc, NewPunchHandler(punchSvc), NewReportHandler(reconSvc), NewEventHandler(hub), RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         NewRequestLogger(io.Discard, "test", slog.LevelError),
		Metrics:        registry.Handler(),
	})

	return &testServer{router: router, jwt: jwtSvc, punches: punches, hub: hub}
}

func (s *testServer) token(t *testing.T, employeeID string, role employee.Role) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(employeeID, handlerCompanyID, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRouter_Heartbeat(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	foreign := jwt.NewJWTService("another-secret", "1h")
	token, _, err := foreign.GenerateAccessToken("emp-1", handlerCompanyID, employee.RoleEmployee)
	require.NoError(t, err)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportHandler_EmployeeReport(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "emp-1", employee.RoleEmployee)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		TotalMinutes   int    `json:"total_minutes"`
		TotalHours     string `json:"total_hours"`
		BalanceMinutes int    `json:"balance_minutes"`
		Intervals      []any  `json:"intervals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 525, report.TotalMinutes)
	assert.Equal(t, "08:45", report.TotalHours)
	assert.Equal(t, 0, report.BalanceMinutes)
	assert.Len(t, report.Intervals, 2)
}

func TestReportHandler_EmployeeCannotReadOthers(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "emp-2", employee.RoleEmployee)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestReportHandler_ValidationAndNotFound(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "mgr-1", employee.RoleManager)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-20&end_date=2024-01-15", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/reports/employees/ghost?start_date=2024-01-15&end_date=2024-01-15", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestReportHandler_DataUnavailable(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "mgr-1", employee.RoleManager)
	s.punches.down = true

	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DATA_UNAVAILABLE", env.Error.Code)
}

func TestReportHandler_BatchReport(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/reports/employees?start_date=2024-01-15&end_date=2024-01-15", s.token(t, "emp-1", employee.RoleEmployee), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token := s.token(t, "mgr-1", employee.RoleManager)
	rec, env := s.do(t, http.MethodGet, "/api/v1/reports/employees?start_date=2024-01-15&end_date=2024-01-15&employee_id=emp-1&employee_id=ghost", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var batch struct {
		Requested int `json:"requested"`
		Rows      []struct {
			EmployeeID string `json:"employee_id"`
			Status     string `json:"status"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, 2, batch.Requested)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "ok", batch.Rows[0].Status)
	assert.Equal(t, "not_found", batch.Rows[1].Status)
}

func TestReportHandler_Normalize(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"employee_id": "emp-2", "date": "2024-01-15"}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/normalizations", s.token(t, "emp-2", employee.RoleEmployee), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token := s.token(t, "mgr-1", employee.RoleManager)
	rec, env := s.do(t, http.MethodPost, "/api/v1/normalizations", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result struct {
		Inserted []struct {
			Kind string `json:"kind"`
		} `json:"inserted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Inserted, 2)
	assert.Equal(t, "entry", result.Inserted[0].Kind)
	assert.Equal(t, "end", result.Inserted[1].Kind)

	rec, env = s.do(t, http.MethodPost, "/api/v1/normalizations", token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Day already complete", env.Message)
}

func TestReportHandler_NormalizeConfigurationError(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "mgr-1", employee.RoleManager)

	rec, env := s.do(t, http.MethodPost, "/api/v1/normalizations", token, map[string]string{"employee_id": "emp-x", "date": "2024-01-15"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFIGURATION_ERROR", env.Error.Code)
}

func TestPunchHandler(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(t, "mgr-1", employee.RoleManager)
	staff := s.token(t, "emp-2", employee.RoleEmployee)

	// Employees cannot record punches manually
	rec, _ := s.do(t, http.MethodPost, "/api/v1/punches", staff, map[string]string{"employee_id": "emp-2", "timestamp": "2024-01-16T08:00:00Z", "kind": "entry"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/punches", manager, map[string]string{"employee_id": "emp-2", "timestamp": "2024-01-16T08:00:00Z", "kind": "sideways"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "kind")

	rec, env = s.do(t, http.MethodPost, "/api/v1/punches", manager, map[string]string{"employee_id": "emp-2", "timestamp": "2024-01-16T08:00:00Z", "kind": "entry", "note": "forgot badge"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	// Without employee_id an employee lists their own punches
	rec, env = s.do(t, http.MethodGet, "/api/v1/punches?start_date=2024-01-16&end_date=2024-01-16", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		EmployeeID string `json:"employee_id"`
		TotalCount int    `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, "emp-2", list.EmployeeID)
	assert.Equal(t, 1, list.TotalCount)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/punches?employee_id=emp-1&start_date=2024-01-15&end_date=2024-01-15", staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/punches/"+created.ID, manager, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/v1/punches/"+created.ID, manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "emp-1", employee.RoleEmployee)
	s.do(t, http.MethodGet, "/api/v1/reports/employees/emp-1?start_date=2024-01-15&end_date=2024-01-15", token, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recon_reports_generated_total")
}

func TestEventHandler_ManagerOnly(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/events?token="+s.token(t, "emp-1", employee.RoleEmployee), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, s.hub.TotalSubscribers())
}

func TestEventHandler_StreamsPunchChanges(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(t, "mgr-1", employee.RoleManager)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?token="+manager, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	nextEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return "", ""
	}

	name, data := nextEvent()
	require.Equal(t, "connected", name)
	assert.Contains(t, data, handlerCompanyID)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/punches", manager, map[string]string{"employee_id": "emp-2", "timestamp": "2024-01-16T08:00:00Z", "kind": "entry"})
	require.Equal(t, http.StatusCreated, rec.Code)

	name, data = nextEvent()
	assert.Equal(t, sse.EventPunchRecorded, name)
	var recorded struct {
		EmployeeID string `json:"employee_id"`
		Kind       string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &recorded))
	assert.Equal(t, "emp-2", recorded.EmployeeID)
	assert.Equal(t, "entry", recorded.Kind)
}
