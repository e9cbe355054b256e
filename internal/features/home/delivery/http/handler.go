package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/home/models"
	"qai-backend/internal/features/home/service"
)

type HomeHandler struct {
	service service.HomeService
}

func NewHomeHandler(service service.HomeService) *HomeHandler {
	return &HomeHandler{service: service}
}

func (h *HomeHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	router.GET("/home", requireAuth, h.getDashboard)
}

type DashboardResponse struct {
	OK     bool `json:"ok"`
	Authed bool `json:"authed"`
	*models.Dashboard
}

// @Summary Get dashboard
// @Description Balances, referral info, reward breakdown, recent rewards and staking progress
// @Tags home
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DashboardResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /home [get]
func (h *HomeHandler) getDashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, DashboardResponse{OK: true, Authed: true, Dashboard: d})
}
