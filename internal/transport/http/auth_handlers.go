package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// AuthHandlers provides HTTP handlers for account endpoints.
type AuthHandlers struct {
	authService *auth.Service
	users       store.UserStore
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, users store.UserStore, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		users:       users,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents a staff user in API responses.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// VerifyResponse represents the token verification response body.
type VerifyResponse struct {
	User UserResponse `json:"user"`
}

// Register handles staff registration.
// POST /api/auth/register
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name, store.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
		case errors.Is(err, auth.ErrInvalidName), errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("email", req.Email).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("user registered successfully")
	c.JSON(http.StatusCreated, AuthResponse{User: userResponse(user), Token: token})
}

// Login handles staff login.
// POST /api/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("email", user.Email).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{User: userResponse(user), Token: token})
}

// Verify returns the account behind the bearer token.
// GET /api/auth/verify
func (h *AuthHandlers) Verify(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), claims.Identity().Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{User: userResponse(user)})
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
	}
}
