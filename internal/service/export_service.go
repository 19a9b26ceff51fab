package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"leavedesk/internal/dto"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
)

type ExportService interface {
	// RequestsXLSX renders the filtered request list as a spreadsheet. The same
	// visibility scoping as List applies: employees only export their own rows.
	RequestsXLSX(ctx context.Context, p Principal, filter dto.RequestFilter) (*bytes.Buffer, string, error)

	// CalendarICS renders approved requests as all-day calendar events.
	CalendarICS(ctx context.Context, p Principal) (*bytes.Buffer, string, error)
}

type exportService struct {
	requests repository.RequestRepository
	now      func() time.Time
}

func NewExportService(requests repository.RequestRepository) ExportService {
	return &exportService{requests: requests, now: time.Now}
}

// exportPageSize bounds one repository page, not the export: collectAll walks
// pages until the filtered set is exhausted so large datasets never truncate.
const exportPageSize = 200

// collectAll pulls every row matching the filter, with the caller's
// visibility scope applied.
func (s *exportService) collectAll(ctx context.Context, p Principal, filter dto.RequestFilter) ([]model.VacationRequest, error) {
	filter.Page = 1
	filter.Limit = exportPageSize
	q, err := buildRequestQuery(p, filter)
	if err != nil {
		return nil, err
	}

	var all []model.VacationRequest
	for {
		batch, total, err := s.requests.List(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < q.Limit || int64(len(all)) >= total {
			return all, nil
		}
		q.Page++
	}
}

var xlsxHeaders = []string{
	"ID", "Employee", "Start Date", "End Date", "Days", "Reason", "Status", "Decided At", "Manager Note",
}

func (s *exportService) RequestsXLSX(ctx context.Context, p Principal, filter dto.RequestFilter) (*bytes.Buffer, string, error) {
	requests, err := s.collectAll(ctx, p, filter)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Requests"
	f.SetSheetName("Sheet1", sheet)

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, style)
	}

	for row, req := range requests {
		decidedAt := ""
		if req.DecidedAt != nil {
			decidedAt = req.DecidedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			req.ID,
			accountName(&requests[row]),
			req.StartDate.Format(time.DateOnly),
			req.EndDate.Format(time.DateOnly),
			req.Duration(),
			req.Reason,
			string(req.Status),
			decidedAt,
			req.ManagerNote,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "F", "F", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("vacation-requests-%s.xlsx", s.now().Format(time.DateOnly))
	return buf, filename, nil
}

func (s *exportService) CalendarICS(ctx context.Context, p Principal) (*bytes.Buffer, string, error) {
	requests, err := s.collectAll(ctx, p, dto.RequestFilter{Status: string(model.StatusApproved)})
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//leavedesk//vacation calendar//EN")

	for i := range requests {
		req := &requests[i]
		ev := cal.AddEvent(fmt.Sprintf("request-%d@leavedesk", req.ID))
		ev.SetCreatedTime(req.CreatedAt)
		ev.SetDtStampTime(req.CreatedAt)
		ev.SetAllDayStartAt(req.StartDate)
		// DTEND is exclusive in iCalendar, the stored range is inclusive.
		ev.SetAllDayEndAt(req.EndDate.AddDate(0, 0, 1))
		ev.SetSummary(fmt.Sprintf("%s: vacation (%d days)", accountName(req), req.Duration()))
		if req.Reason != "" {
			ev.SetDescription(req.Reason)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "vacation-calendar.ics", nil
}
