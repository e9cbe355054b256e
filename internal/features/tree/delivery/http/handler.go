package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/service"
)

type TreeHandler struct {
	service service.TreeService
}

func NewTreeHandler(service service.TreeService) *TreeHandler {
	return &TreeHandler{service: service}
}

func (h *TreeHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	tree := router.Group("/tree", requireAuth)
	{
		tree.GET("/:tree", h.getOrgChart)
	}
}

// OrgChartResponse is the flat chart of the caller's subtree.
type OrgChartResponse struct {
	OK    bool               `json:"ok"`
	Nodes []models.ChartNode `json:"nodes"`
	Edges []models.ChartEdge `json:"edges"`
}

// @Summary Get org chart
// @Description Caller plus three levels of descendants in the referral or sponsor tree
// @Tags tree
// @Produce json
// @Security BearerAuth
// @Param tree path string true "referral or sponsor"
// @Success 200 {object} OrgChartResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tree/{tree} [get]
func (h *TreeHandler) getOrgChart(c *gin.Context) {
	chart, err := h.service.OrgChart(c.Request.Context(), c.Param("tree"), middleware.GetUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, OrgChartResponse{OK: true, Nodes: chart.Nodes, Edges: chart.Edges})
}
