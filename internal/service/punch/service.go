package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/sse"
)

type PunchServiceImpl struct {
	punch.PunchRepository
	employee.EmployeeRepository
	loc    *time.Location
	events *sse.Hub
}

// NewPunchService builds the punch service. events may be nil.
func NewPunchService(punchRepo punch.PunchRepository, employeeRepo employee.EmployeeRepository, loc *time.Location, events *sse.Hub) punch.PunchService {
	if loc == nil {
		loc = time.UTC
	}
	return &PunchServiceImpl{
		PunchRepository:    punchRepo,
		EmployeeRepository: employeeRepo,
		loc:                loc,
		events:             events,
	}
}

// Record implements punch.PunchService.
func (s *PunchServiceImpl) Record(ctx context.Context, req punch.CreatePunchRequest) (punch.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return punch.PunchResponse{}, err
	}

	if _, err := s.EmployeeRepository.GetByID(ctx, req.EmployeeID, req.CompanyID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return punch.PunchResponse{}, err
		}
		return punch.PunchResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	inserted, err := s.PunchRepository.Insert(ctx, []punch.Punch{{
		EmployeeID:      req.EmployeeID,
		CompanyID:       req.CompanyID,
		Timestamp:       req.ParsedTimestamp,
		Kind:            punch.Kind(req.Kind),
		SequenceOrdinal: req.SequenceOrdinal,
		Note:            req.Note,
	}})
	if err != nil {
		return punch.PunchResponse{}, fmt.Errorf("failed to insert punch: %w", err)
	}
	if len(inserted) != 1 {
		return punch.PunchResponse{}, fmt.Errorf("failed to insert punch: store returned %d records", len(inserted))
	}

	slog.Info("punch recorded",
		slog.String("employee_id", req.EmployeeID),
		slog.String("punch_id", inserted[0].ID),
		slog.String("kind", req.Kind),
	)

	resp := punch.ToResponse(inserted[0], s.loc)
	s.events.Publish(req.CompanyID, sse.Event{Event: sse.EventPunchRecorded, Data: resp})

	return resp, nil
}

// List implements punch.PunchService.
func (s *PunchServiceImpl) List(ctx context.Context, filter punch.PunchFilter) (punch.ListPunchResponse, error) {
	if err := filter.Validate(); err != nil {
		return punch.ListPunchResponse{}, err
	}

	start, err := calendar.ParseDay(filter.StartDate)
	if err != nil {
		return punch.ListPunchResponse{}, err
	}
	end, err := calendar.ParseDay(filter.EndDate)
	if err != nil {
		return punch.ListPunchResponse{}, err
	}

	if _, err := s.EmployeeRepository.GetByID(ctx, filter.EmployeeID, filter.CompanyID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return punch.ListPunchResponse{}, err
		}
		return punch.ListPunchResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	punches, err := s.PunchRepository.FetchByEmployeeAndRange(ctx, filter.EmployeeID, start.Start(s.loc), end.AddDays(1).Start(s.loc), filter.CompanyID)
	if err != nil {
		return punch.ListPunchResponse{}, fmt.Errorf("failed to fetch punches: %w", err)
	}

	resp := punch.ListPunchResponse{
		EmployeeID: filter.EmployeeID,
		StartDate:  start.String(),
		EndDate:    end.String(),
		TotalCount: len(punches),
		Punches:    make([]punch.PunchResponse, 0, len(punches)),
	}
	for _, p := range punches {
		resp.Punches = append(resp.Punches, punch.ToResponse(p, s.loc))
	}

	return resp, nil
}

// Delete implements punch.PunchService.
func (s *PunchServiceImpl) Delete(ctx context.Context, id string, companyID string) error {
	existing, err := s.PunchRepository.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, punch.ErrPunchNotFound) {
			return err
		}
		return fmt.Errorf("failed to get punch: %w", err)
	}

	if err := s.PunchRepository.Delete(ctx, id, companyID); err != nil {
		return fmt.Errorf("failed to delete punch: %w", err)
	}

	slog.Info("punch deleted", slog.String("punch_id", id))
	s.events.Publish(companyID, sse.Event{Event: sse.EventPunchDeleted, Data: punch.ToResponse(existing, s.loc)})
	return nil
}
