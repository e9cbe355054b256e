package service

import (
	"errors"

	apperrors "qai-backend/internal/common/errors"
)

var (
	ErrChildLimitReached = apperrors.New(apperrors.ErrCodeSponsorChildLimit, "parent has reached its child limit")
	ErrInvalidGroupNo    = apperrors.New(apperrors.ErrCodeInvalidRequestedGroupNo, "requested group is not available")
	ErrUnknownTree       = apperrors.New(apperrors.ErrCodeNotFound, "unknown tree")
	ErrMemberNotFound    = apperrors.New(apperrors.ErrCodeNotFound, "user not found")

	errNoGroups = errors.New("tree kind declares no groups")
)
