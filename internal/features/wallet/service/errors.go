package service

import (
	apperrors "qai-backend/internal/common/errors"
)

var (
	ErrInvalidToken        = apperrors.New(apperrors.ErrCodeInvalidToken, "unsupported token, only USDT is allowed")
	ErrInvalidAmount       = apperrors.New(apperrors.ErrCodeInvalidAmount, "invalid withdrawal amount")
	ErrWalletNotFound      = apperrors.New(apperrors.ErrCodeWalletNotFound, "user wallet not initialized")
	ErrOTPNotEnabled       = apperrors.New(apperrors.ErrCodeOTPNotEnabled, "google OTP is not enabled for this account")
	ErrInvalidOTP          = apperrors.New(apperrors.ErrCodeInvalidOTP, "invalid google OTP code")
	ErrNoWithdrawAddress   = apperrors.New(apperrors.ErrCodeNoWithdrawAddress, "register a withdrawal address first")
	ErrInvalidAddress      = apperrors.New(apperrors.ErrCodeInvalidAddress, "invalid BEP20 address")
	ErrInsufficientBalance = apperrors.New(apperrors.ErrCodeInsufficientBalance, "insufficient balance")
	ErrDepositTimeout      = apperrors.New(apperrors.ErrCodeTimeout, "deposit address lookup timed out")
	ErrInvalidCursor       = apperrors.NewValidationError("cursor", "malformed cursor")
	ErrInvalidTxType       = apperrors.NewValidationError("type", "must be DEPOSIT, WITHDRAW or SWAP")
)
