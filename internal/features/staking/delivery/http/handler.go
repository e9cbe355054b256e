package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/staking/models"
	"qai-backend/internal/features/staking/service"
)

type StakingHandler struct {
	staking service.StakingService
	admin   service.PackageAdminService
}

func NewStakingHandler(staking service.StakingService, admin service.PackageAdminService) *StakingHandler {
	return &StakingHandler{staking: staking, admin: admin}
}

func (h *StakingHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	staking := router.Group("/staking")
	{
		staking.GET("/packages", h.getPackages)
		staking.POST("", requireAuth, h.purchase)
		staking.GET("/history", requireAuth, h.getHistory)
	}
}

// RegisterAdminRoutes mounts package management. requireAdmin runs after requireAuth.
func (h *StakingHandler) RegisterAdminRoutes(router *gin.RouterGroup, requireAuth, requireAdmin gin.HandlerFunc) {
	admin := router.Group("/admin/packages", requireAuth, requireAdmin)
	{
		admin.GET("", h.listPackages)
		admin.POST("", h.createPackage)
		admin.DELETE("/:id", h.deletePackage)
	}
}

type PackagesResponse struct {
	OK    bool                 `json:"ok"`
	Items []models.PackageView `json:"items"`
}

// PurchaseRequest accepts amount as a JSON number or a decimal string.
type PurchaseRequest struct {
	Amount json.RawMessage `json:"amount" swaggertype:"string" example:"100"`
}

type PurchaseResponse struct {
	OK bool `json:"ok"`
	*models.PurchaseResult
}

type HistoryResponse struct {
	OK    bool                 `json:"ok"`
	Items []models.HistoryItem `json:"items"`
}

type PackagePageResponse struct {
	OK bool `json:"ok"`
	*models.PackagePage
}

type CreatePackageRequest struct {
	Name  string          `json:"name" example:"Starter"`
	Price json.RawMessage `json:"price" swaggertype:"string" example:"100"`
}

type PackageResponse struct {
	OK      bool                `json:"ok"`
	Package *models.PackageView `json:"package"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func rawDecimal(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// @Summary List staking packages
// @Tags staking
// @Produce json
// @Success 200 {object} PackagesResponse
// @Router /staking/packages [get]
func (h *StakingHandler) getPackages(c *gin.Context) {
	items, err := h.staking.Packages(c.Request.Context())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, PackagesResponse{OK: true, Items: items})
}

// @Summary Buy a staking package
// @Description Debits USDT equal to the package price and adds one unit of the package
// @Tags staking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PurchaseRequest true "Package price"
// @Success 200 {object} PurchaseResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /staking [post]
func (h *StakingHandler) purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}

	res, err := h.staking.Purchase(c.Request.Context(), middleware.GetUserID(c), rawDecimal(req.Amount))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, PurchaseResponse{OK: true, PurchaseResult: res})
}

// @Summary Staking history
// @Tags staking
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of rows (1-100, default 10)"
// @Success 200 {object} HistoryResponse
// @Router /staking/history [get]
func (h *StakingHandler) getHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	items, err := h.staking.History(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{OK: true, Items: items})
}

// @Summary List packages (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, 1-based"
// @Param size query int false "Page size (1-100, default 10)"
// @Param q query string false "Name contains"
// @Success 200 {object} PackagePageResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/packages [get]
func (h *StakingHandler) listPackages(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	size, err := queryInt(c, "size")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	res, err := h.admin.ListPackages(c.Request.Context(), models.PackageQuery{Page: page, Size: size, Q: c.Query("q")})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, PackagePageResponse{OK: true, PackagePage: res})
}

// @Summary Create package (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreatePackageRequest true "Package"
// @Success 201 {object} PackageResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/packages [post]
func (h *StakingHandler) createPackage(c *gin.Context) {
	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}

	pkg, err := h.admin.CreatePackage(c.Request.Context(), models.CreatePackageInput{
		Name:  req.Name,
		Price: rawDecimal(req.Price),
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.Header("Location", "/api/admin/packages/"+pkg.ID)
	c.JSON(http.StatusCreated, PackageResponse{OK: true, Package: pkg})
}

// @Summary Delete package (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} OKResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/packages/{id} [delete]
func (h *StakingHandler) deletePackage(c *gin.Context) {
	if err := h.admin.DeletePackage(c.Request.Context(), c.Param("id")); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
