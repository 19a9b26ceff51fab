package handler

import (
	"context"
	"net/http"

	"leavedesk/internal/apierror"
	"leavedesk/internal/dto"
	"leavedesk/internal/middleware"
	"leavedesk/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestsHandler struct{ svc service.RequestService }

func NewRequestsHandler(svc service.RequestService) *RequestsHandler {
	return &RequestsHandler{svc: svc}
}

// Create godoc
// @Summary Submit a vacation request
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateVacationRequest true "Requested range"
// @Success 201 {object} dto.VacationResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/requests [post]
func (h *RequestsHandler) Create(c *gin.Context) {
	var req dto.CreateVacationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.GetPrincipal(c),
		mustDate(req.StartDate), mustDate(req.EndDate), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary Edit a pending request (owner only)
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body dto.UpdateVacationRequest true "New range and reason"
// @Success 200 {object} dto.VacationResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requests/{id} [put]
func (h *RequestsHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dto.UpdateVacationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.GetPrincipal(c), id,
		mustDate(req.StartDate), mustDate(req.EndDate), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary Approve a pending request (manager only)
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body dto.DecisionRequest false "Optional note"
// @Success 200 {object} dto.VacationResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requests/{id}/approve [post]
func (h *RequestsHandler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve)
}

// Reject godoc
// @Summary Reject a pending request (manager only)
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body dto.DecisionRequest false "Optional note"
// @Success 200 {object} dto.VacationResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requests/{id}/reject [post]
func (h *RequestsHandler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

type decideFn func(ctx context.Context, p service.Principal, id uint, note string) (*dto.VacationResponse, error)

// decide shares the id + optional-note plumbing between approve and reject.
// An empty body is accepted; the note defaults to "".
func (h *RequestsHandler) decide(c *gin.Context, fn decideFn) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	resp, err := fn(c.Request.Context(), middleware.GetPrincipal(c), id, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Withdraw a pending request
// @Tags requests
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/requests/{id} [delete]
func (h *RequestsHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestsHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary List vacation requests with filters and pagination
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending|approved|rejected"
// @Param search query string false "substring over requester name or reason"
// @Param account_id query int false "scope to one account (managers only)"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "1-based page"
// @Param limit query int false "page size, max 200"
// @Success 200 {object} dto.VacationListResponse
// @Router /v1/requests [get]
func (h *RequestsHandler) List(c *gin.Context) {
	var filter dto.RequestFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.GetPrincipal(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
