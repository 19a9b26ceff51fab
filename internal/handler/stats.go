package handler

import (
	"net/http"
	"strconv"

	"leavedesk/internal/middleware"
	"leavedesk/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct{ svc service.StatsService }

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

// Overview godoc
// @Summary Request counts by status and mean decision latency
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.OverviewResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/stats/overview [get]
func (h *StatsHandler) Overview(c *gin.Context) {
	resp, err := h.svc.Overview(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StatsHandler) Monthly(c *gin.Context) {
	resp, err := h.svc.Monthly(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StatsHandler) Utilization(c *gin.Context) {
	resp, err := h.svc.Utilization(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	resp, err := h.svc.Leaderboard(c.Request.Context(), middleware.GetPrincipal(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
