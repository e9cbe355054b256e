package service

import (
	apperrors "qai-backend/internal/common/errors"
)

var (
	ErrInvalidGroupNo     = apperrors.New(apperrors.ErrCodeInvalidRequestedGroupNo, "groupNo must be a positive integer")
	ErrReferrerRequired   = apperrors.New(apperrors.ErrCodeReferrerRequired, "referrer is required")
	ErrSponsorRequired    = apperrors.New(apperrors.ErrCodeSponsorRequired, "sponsor is required")
	ErrUsernameTaken      = apperrors.New(apperrors.ErrCodeUsernameTaken, "username already taken")
	ErrEmailTaken         = apperrors.New(apperrors.ErrCodeEmailTaken, "email already taken")
	ErrCountryCodeInvalid = apperrors.New(apperrors.ErrCodeCountryCodeInvalid, "country code must be two letters")
	ErrCountryNotFound    = apperrors.New(apperrors.ErrCodeCountryNotFound, "country not found")
	ErrReferrerNotFound   = apperrors.New(apperrors.ErrCodeReferrerNotFound, "referrer not found")
	ErrSponsorNotFound    = apperrors.New(apperrors.ErrCodeSponsorNotFound, "sponsor not found")
	ErrInvalidCredentials = apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid username or password")
	ErrUserNotFound       = apperrors.New(apperrors.ErrCodeNotFound, "user not found")
)
