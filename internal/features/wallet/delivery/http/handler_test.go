package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/wallet/models"
	"qai-backend/internal/features/wallet/service"
)

type fakeWalletService struct {
	withdrawIn models.WithdrawInput
	limit      int
	cursor     string
	txType     string
	err        error
}

func (f *fakeWalletService) WithdrawInfo(ctx context.Context, userID string) (*models.WithdrawInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.WithdrawInfo{Balances: models.BalancesView{USDT: 10}, RecentWithdraws: []models.WithdrawItem{}}, nil
}

func (f *fakeWalletService) Withdraw(ctx context.Context, userID string, in models.WithdrawInput) (*models.WithdrawResult, error) {
	f.withdrawIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.WithdrawResult{TxID: "tx1", Balance: 74.5}, nil
}

func (f *fakeWalletService) SetWithdrawAddress(ctx context.Context, userID, address string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return strings.ToUpper(address), nil
}

func (f *fakeWalletService) Deposit(ctx context.Context, userID string) (*models.DepositInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.DepositInfo{Address: "0xabc", Network: "BEP20", RecentDeposits: []models.DepositItem{}}, nil
}

func (f *fakeWalletService) History(ctx context.Context, userID string, limit int, cursor, txType string) (*models.HistoryPage, error) {
	f.limit, f.cursor, f.txType = limit, cursor, txType
	if f.err != nil {
		return nil, f.err
	}
	return &models.HistoryPage{Items: []models.HistoryItem{{ID: "t1", Amount: 5}}, NextCursor: "next"}, nil
}

func newRouter(svc *fakeWalletService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, "u1")
		c.Next()
	}
	NewWalletHandler(svc).RegisterRoutes(r.Group("/api"), fakeAuth)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWithdraw_AcceptsNumberOrString(t *testing.T) {
	for _, amount := range []string{`25.5`, `"25.5"`} {
		svc := &fakeWalletService{}
		rec := do(newRouter(svc), http.MethodPost, "/api/wallet/withdraw",
			`{"amount":`+amount+`,"token":"USDT","otpCode":"123456"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "25.5", svc.withdrawIn.Amount)
		assert.Equal(t, "123456", svc.withdrawIn.OTPCode)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "tx1", body["txId"])
		assert.Equal(t, 74.5, body["balance"])
	}
}

func TestWithdraw_ErrorCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrOTPNotEnabled, http.StatusForbidden, "OTP_NOT_ENABLED"},
		{service.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},
		{service.ErrWalletNotFound, http.StatusNotFound, "USER_WALLET_NOT_FOUND"},
	}
	for _, tc := range cases {
		rec := do(newRouter(&fakeWalletService{err: tc.err}), http.MethodPost, "/api/wallet/withdraw",
			`{"amount":"1","token":"USDT","otpCode":"000000"}`)

		assert.Equal(t, tc.status, rec.Code)
		var body middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.OK)
		assert.Equal(t, tc.code, body.Code)
	}
}

func TestWithdraw_MalformedBody(t *testing.T) {
	rec := do(newRouter(&fakeWalletService{}), http.MethodPost, "/api/wallet/withdraw", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetWithdrawAddress(t *testing.T) {
	rec := do(newRouter(&fakeWalletService{}), http.MethodPut, "/api/wallet/withdraw-address", `{"address":"0xabc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"withdrawAddress":"0XABC"}`, rec.Body.String())
}

func TestGetDeposit_Timeout(t *testing.T) {
	svc := &fakeWalletService{err: apperrors.New(apperrors.ErrCodeTimeout, "deposit address lookup timed out")}
	rec := do(newRouter(svc), http.MethodGet, "/api/wallet/deposit", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestGetWithdrawInfo(t *testing.T) {
	rec := do(newRouter(&fakeWalletService{}), http.MethodGet, "/api/wallet/withdraw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestGetHistory_PassesQuery(t *testing.T) {
	svc := &fakeWalletService{}
	rec := do(newRouter(svc), http.MethodGet, "/api/wallet/history?limit=20&cursor=abc&type=deposit", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, svc.limit)
	assert.Equal(t, "abc", svc.cursor)
	assert.Equal(t, "deposit", svc.txType)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "next", body["nextCursor"])
	assert.Len(t, body["items"], 1)
}

func TestGetHistory_BadLimit(t *testing.T) {
	rec := do(newRouter(&fakeWalletService{}), http.MethodGet, "/api/wallet/history?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
