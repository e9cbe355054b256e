package service

import (
	apperrors "qai-backend/internal/common/errors"
)

var (
	ErrPackageNotFound   = apperrors.New(apperrors.ErrCodePackageNotFound, "no package matches this amount")
	ErrInvalidAmount     = apperrors.New(apperrors.ErrCodeInvalidAmount, "invalid staking amount")
	ErrInsufficientFunds = apperrors.New(apperrors.ErrCodeInsufficientFunds, "insufficient USDT balance")
	ErrWalletNotFound    = apperrors.New(apperrors.ErrCodeWalletNotFound, "user wallet not initialized")
	ErrInvalidName       = apperrors.NewValidationError("name", "must be 1 to 100 characters")
	ErrInvalidPrice      = apperrors.NewValidationError("price", "must be a positive decimal")
)
