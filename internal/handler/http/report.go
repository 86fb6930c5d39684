package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	// Worked time for one employee
	GetEmployeeReport(w http.ResponseWriter, r *http.Request)

	// Worked time for many employees
	GetBatchReport(w http.ResponseWriter, r *http.Request)

	// Fill in missing canonical punches for one day
	Normalize(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reconciliationService reconciliation.ReconciliationService
}

func NewReportHandler(reconciliationService reconciliation.ReconciliationService) ReportHandler {
	return &reportHandlerImpl{
		reconciliationService: reconciliationService,
	}
}

// GetEmployeeReport handles GET /reports/employees/{id}
func (h *reportHandlerImpl) GetEmployeeReport(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	employeeID := chi.URLParam(r, "id")
	if !principal.CanAccessEmployee(employeeID) {
		response.HandleError(w, auth.ErrSelfAccessOnly)
		return
	}

	req := reconciliation.EmployeeReportRequest{
		CompanyID:  principal.CompanyID,
		EmployeeID: employeeID,
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}

	result, err := h.reconciliationService.GenerateEmployeeReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetBatchReport handles GET /reports/employees
func (h *reportHandlerImpl) GetBatchReport(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := reconciliation.BatchReportRequest{
		CompanyID:   principal.CompanyID,
		EmployeeIDs: query["employee_id"],
		StartDate:   query.Get("start_date"),
		EndDate:     query.Get("end_date"),
	}

	result, err := h.reconciliationService.GenerateBatchReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{
		TotalItems: result.Requested,
		Completed:  result.Completed,
		Cancelled:  result.Cancelled,
	})
}

// Normalize handles POST /normalizations
func (h *reportHandlerImpl) Normalize(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	var req reconciliation.NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode normalize request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.CompanyID = principal.CompanyID

	result, err := h.reconciliationService.NormalizeDay(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if len(result.Inserted) == 0 {
		response.SuccessWithMessage(w, "Day already complete", result)
		return
	}
	response.Created(w, "Punches normalized", result)
}
