package http

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/middleware"
	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes mounts the public auth endpoints behind limiter.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, limiter gin.HandlerFunc) {
	auth := router.Group("/auth", limiter)
	{
		auth.POST("/signup", h.signup)
		auth.POST("/login", h.login)
		auth.GET("/resolve-user", h.resolveUser)
	}
}

// SignupRequest is the signup body. groupNo is kept raw so a non-integer
// value is reported as INVALID_REQUESTED_GROUP_NO rather than a decode error.
type SignupRequest struct {
	Username    string          `json:"username" example:"carol"`
	Email       string          `json:"email" example:"carol@example.com"`
	Password    string          `json:"password" example:"Secret#123"`
	Name        string          `json:"name" example:"Carol"`
	Referrer    string          `json:"referrer" example:"alice"`
	Sponsor     string          `json:"sponsor" example:"bob"`
	CountryCode string          `json:"countryCode,omitempty" example:"KR"`
	GroupNo     json.RawMessage `json:"groupNo,omitempty" swaggertype:"integer" example:"1"`
}

type SignupResponse struct {
	OK   bool                 `json:"ok"`
	User *models.UserResponse `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username" example:"carol"`
	Password string `json:"password" example:"Secret#123"`
}

type LoginResponse struct {
	OK bool `json:"ok"`
	*models.LoginResult
}

type ResolveUserResponse struct {
	OK   bool                 `json:"ok"`
	User *models.ResolvedUser `json:"user"`
}

var errInvalidGroupNo = apperrors.New(apperrors.ErrCodeInvalidRequestedGroupNo, "groupNo must be a positive integer")

// parseGroupNo accepts null, an absent field or a positive integral number.
func parseGroupNo(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errInvalidGroupNo
	}
	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, errInvalidGroupNo
	}
	g := int(f)
	return &g, nil
}

// @Summary Sign up
// @Description Create an account and place it in the referral and sponsor trees
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignupRequest true "Signup payload"
// @Success 201 {object} SignupResponse
// @Header 201 {string} Location "/api/users/{id}"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /auth/signup [post]
func (h *UserHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}
	groupNo, err := parseGroupNo(req.GroupNo)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	user, err := h.service.Signup(c.Request.Context(), models.SignupInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Referrer:    req.Referrer,
		Sponsor:     req.Sponsor,
		CountryCode: req.CountryCode,
		GroupNo:     groupNo,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	c.Header("Location", "/api/users/"+user.ID)
	c.JSON(http.StatusCreated, SignupResponse{OK: true, User: user.ToResponse()})
}

// @Summary Log in
// @Description Exchange a username or email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/login [post]
func (h *UserHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request body"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), models.LoginInput{Login: req.Username, Password: req.Password})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{OK: true, LoginResult: res})
}

// @Summary Resolve user
// @Description Look up a referrer or sponsor by username or referral code
// @Tags auth
// @Produce json
// @Param q query string true "Username or referral code"
// @Success 200 {object} ResolveUserResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /auth/resolve-user [get]
func (h *UserHandler) resolveUser(c *gin.Context) {
	user, err := h.service.ResolveUser(c.Request.Context(), c.Query("q"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveUserResponse{OK: true, User: user})
}
