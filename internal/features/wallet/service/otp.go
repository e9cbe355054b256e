package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// MinOTPSecretLength is the shortest base32 secret accepted for withdrawals.
const MinOTPSecretLength = 16

var otpCodeRegex = regexp.MustCompile(`^\d{6}$`)

// OTPVerifier checks a one-time code against a shared secret.
type OTPVerifier interface {
	Verify(code, secret string, at time.Time) bool
}

// TOTPVerifier validates RFC 6238 codes: SHA1, six digits, 30 second period,
// accepting two steps of clock drift either way.
type TOTPVerifier struct{}

func (TOTPVerifier) Verify(code, secret string, at time.Time) bool {
	secret = strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	if len(secret) < MinOTPSecretLength || !otpCodeRegex.MatchString(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      2,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
