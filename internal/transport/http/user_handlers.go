package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/auth"
)

// UserHandlers provides HTTP handlers for profile operations.
type UserHandlers struct {
	authService *auth.Service
	requireAuth bool
	log         *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
// With requireAuth the caller may only update the profile the bearer token was issued for.
func NewUserHandlers(authService *auth.Service, requireAuth bool, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		authService: authService,
		requireAuth: requireAuth,
		log:         logger,
	}
}

// UpdateProfileRequest represents the profile update body.
// Avatar distinguishes an absent field from an explicit null.
type UpdateProfileRequest struct {
	Email    string          `json:"email"`
	Nickname string          `json:"nickname"`
	Avatar   json.RawMessage `json:"avatar"`
}

// UpdateProfile changes nickname and/or avatar.
// POST /api/updateProfile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid request body"})
		return
	}

	if h.requireAuth && c.GetString(ContextKeyEmail) != req.Email {
		c.JSON(http.StatusForbidden, ErrorResponse{Msg: "cannot update another user's profile"})
		return
	}

	update := auth.ProfileUpdate{Nickname: req.Nickname}
	if req.Avatar != nil {
		update.AvatarSet = true
		if err := json.Unmarshal(req.Avatar, &update.Avatar); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "avatar must be a string or null"})
			return
		}
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), req.Email, update)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusOK, ErrorResponse{Msg: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal server error"})
		return
	}

	h.log.Info().Str("email", user.Email).Msg("profile updated")
	c.JSON(http.StatusOK, AuthResponse{
		OK:   true,
		User: &UserResponse{Email: user.Email, Nickname: user.Nickname, Avatar: user.Avatar},
	})
}
