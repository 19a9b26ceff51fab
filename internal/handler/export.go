package handler

import (
	"net/http"

	"leavedesk/internal/apierror"
	"leavedesk/internal/dto"
	"leavedesk/internal/middleware"
	"leavedesk/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

type ExportHandler struct{ svc service.ExportService }

func NewExportHandler(svc service.ExportService) *ExportHandler { return &ExportHandler{svc: svc} }

// RequestsXLSX godoc
// @Summary Download the filtered request list as a spreadsheet
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "pending|approved|rejected"
// @Param search query string false "substring filter"
// @Success 200 {file} binary
// @Router /v1/export/requests.xlsx [get]
func (h *ExportHandler) RequestsXLSX(c *gin.Context) {
	var filter dto.RequestFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	buf, filename, err := h.svc.RequestsXLSX(c.Request.Context(), middleware.GetPrincipal(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CalendarICS godoc
// @Summary Approved vacations as an iCalendar feed
// @Tags export
// @Produce text/calendar
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/export/calendar.ics [get]
func (h *ExportHandler) CalendarICS(c *gin.Context) {
	buf, filename, err := h.svc.CalendarICS(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, icsContentType, buf.Bytes())
}
