package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/wallet/models"
	"qai-backend/internal/features/wallet/service"
)

type WalletHandler struct {
	service service.WalletService
}

func NewWalletHandler(service service.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	wallet := router.Group("/wallet", requireAuth)
	{
		wallet.GET("/withdraw", h.getWithdrawInfo)
		wallet.POST("/withdraw", h.withdraw)
		wallet.PUT("/withdraw-address", h.setWithdrawAddress)
		wallet.GET("/deposit", h.getDeposit)
		wallet.GET("/history", h.getHistory)
	}
}

type WithdrawInfoResponse struct {
	OK bool `json:"ok"`
	*models.WithdrawInfo
}

// WithdrawRequest accepts amount as a JSON number or a decimal string.
type WithdrawRequest struct {
	Amount  json.RawMessage `json:"amount" swaggertype:"string" example:"25.5"`
	Token   string          `json:"token" example:"USDT"`
	OTPCode string          `json:"otpCode" example:"123456"`
}

type WithdrawResponse struct {
	OK bool `json:"ok"`
	*models.WithdrawResult
}

type WithdrawAddressRequest struct {
	Address string `json:"address" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
}

type WithdrawAddressResponse struct {
	OK              bool   `json:"ok"`
	WithdrawAddress string `json:"withdrawAddress"`
}

type DepositResponse struct {
	OK bool `json:"ok"`
	*models.DepositInfo
}

type HistoryResponse struct {
	OK bool `json:"ok"`
	*models.HistoryPage
}

func rawAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

// @Summary Withdraw page data
// @Description Balances, withdraw address, OTP enrolment and the last five withdrawals
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} WithdrawInfoResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /wallet/withdraw [get]
func (h *WalletHandler) getWithdrawInfo(c *gin.Context) {
	info, err := h.service.WithdrawInfo(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, WithdrawInfoResponse{OK: true, WithdrawInfo: info})
}

// @Summary Request withdrawal
// @Description Debits USDT and records a pending withdrawal after Google OTP verification
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body WithdrawRequest true "Withdrawal"
// @Success 200 {object} WithdrawResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /wallet/withdraw [post]
func (h *WalletHandler) withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}

	res, err := h.service.Withdraw(c.Request.Context(), middleware.GetUserID(c), models.WithdrawInput{
		Token:   req.Token,
		Amount:  rawAmount(req.Amount),
		OTPCode: req.OTPCode,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawResponse{OK: true, WithdrawResult: res})
}

// @Summary Set withdraw address
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body WithdrawAddressRequest true "BEP20 address"
// @Success 200 {object} WithdrawAddressResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /wallet/withdraw-address [put]
func (h *WalletHandler) setWithdrawAddress(c *gin.Context) {
	var req WithdrawAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}

	addr, err := h.service.SetWithdrawAddress(c.Request.Context(), middleware.GetUserID(c), req.Address)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawAddressResponse{OK: true, WithdrawAddress: addr})
}

// @Summary Deposit address
// @Description Returns the user's BEP20 deposit address, issuing one on first use
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DepositResponse
// @Failure 504 {object} middleware.ErrorResponse
// @Router /wallet/deposit [get]
func (h *WalletHandler) getDeposit(c *gin.Context) {
	info, err := h.service.Deposit(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, DepositResponse{OK: true, DepositInfo: info})
}

// @Summary Wallet history
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (1-200, default 50)"
// @Param cursor query string false "Opaque cursor from the previous page"
// @Param type query string false "DEPOSIT, WITHDRAW or SWAP"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /wallet/history [get]
func (h *WalletHandler) getHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(c, apperrors.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	page, err := h.service.History(c.Request.Context(), middleware.GetUserID(c), limit, c.Query("cursor"), c.Query("type"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{OK: true, HistoryPage: page})
}
