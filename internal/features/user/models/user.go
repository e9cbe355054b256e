package models

import "time"

// User is the stored account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Name         string
	CountryCode  *string
	ReferralCode string
	ReferrerID   *string
	SponsorID    *string
	Role         string
	CreatedAt    time.Time
}

// UserResponse is the public shape returned after signup.
// @Description Public user fields
type UserResponse struct {
	ID           string    `json:"id" example:"7f1c0a4e-3c55-4a8e-9f52-0c5e3b1d2a10"`
	Username     string    `json:"username" example:"alice"`
	Email        string    `json:"email" example:"alice@example.com"`
	Name         string    `json:"name" example:"Alice Kim"`
	CountryCode  *string   `json:"countryCode" example:"KR"`
	ReferrerID   *string   `json:"referrerId"`
	SponsorID    *string   `json:"sponsorId"`
	ReferralCode string    `json:"referralCode" example:"K7QH2M9X"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		CountryCode:  u.CountryCode,
		ReferrerID:   u.ReferrerID,
		SponsorID:    u.SponsorID,
		ReferralCode: u.ReferralCode,
		CreatedAt:    u.CreatedAt,
	}
}

// SignupInput is the raw signup request. GroupNo, when set, is the requested
// group in both trees.
type SignupInput struct {
	Username    string
	Email       string
	Password    string
	Name        string
	Referrer    string
	Sponsor     string
	CountryCode string
	GroupNo     *int
}

// LoginInput accepts a username or an email as Login.
type LoginInput struct {
	Login    string
	Password string
}

// LoginResult carries the issued access token.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      ResolvedUser `json:"user"`
}

// ResolvedUser is the minimal identity returned by lookups.
type ResolvedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}
