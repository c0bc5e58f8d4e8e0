package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hatchboard/backend/internal/domain/session"
	"github.com/hatchboard/backend/internal/domain/user"
	"github.com/hatchboard/backend/internal/utils"
)

// RefreshCookieName is the cookie carrying the raw refresh token
const RefreshCookieName = "refresh_token"

type Handler struct {
	tokens   *TokenService
	users    user.Service
	userRepo user.Repository
}

func NewHandler(tokens *TokenService, users user.Service, userRepo user.Repository) *Handler {
	return &Handler{tokens: tokens, users: users, userRepo: userRepo}
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	u, err := h.users.Register(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict)
		case errors.Is(err, user.ErrEmailRequired), errors.Is(err, user.ErrPasswordRequired):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
		default:
			return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
		}
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user": u.ToResponse(),
	}, "User registered successfully", fiber.StatusCreated)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req user.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	u, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
		}
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	pair, err := h.tokens.IssueTokenPair(c.UserContext(), u.ID, deviceInfo(c))
	if err != nil {
		// Issuance is all-or-nothing: a failed login attempt must leave no
		// partial state and no usable tokens.
		return utils.ErrorResponse(c, "login_failed", fiber.StatusInternalServerError)
	}

	setRefreshCookie(c, pair.RefreshToken, pair.ExpiresAt)

	return utils.SuccessResponse(c, fiber.Map{
		"access_token": pair.AccessToken,
		"user":         u.ToResponse(),
	}, "Login successful")
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(RefreshCookieName)
	if refreshToken == "" {
		return utils.ErrorResponse(c, ErrInvalidRefreshToken.Error(), fiber.StatusUnauthorized)
	}

	access, err := h.tokens.RefreshAccessToken(c.UserContext(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			clearRefreshCookie(c)
			return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
		}
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"access_token": access,
	}, "Token refreshed")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies(RefreshCookieName)
	if refreshToken != "" {
		// Revoke is idempotent; an unknown token is already logged out
		if _, err := h.tokens.RevokeToken(c.UserContext(), refreshToken); err != nil {
			return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
		}
	}

	clearRefreshCookie(c)
	return utils.SuccessResponse(c, nil, "Logged out")
}

func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, ErrUnknownUser.Error(), fiber.StatusUnauthorized)
	}

	if err := h.tokens.RevokeAllUserTokens(c.UserContext(), identity.UserID); err != nil {
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	clearRefreshCookie(c)
	return utils.SuccessResponse(c, nil, "Logged out everywhere")
}

func (h *Handler) Sessions(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, ErrUnknownUser.Error(), fiber.StatusUnauthorized)
	}

	sessions, err := h.tokens.ListActiveSessions(c.UserContext(), identity.UserID)
	if err != nil {
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"sessions": sessions,
	}, "Active sessions")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the stored hash and revokes every standing session,
// including the one that made this request. The caller must log in again.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, ErrUnknownUser.Error(), fiber.StatusUnauthorized)
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	if err := h.users.ChangePassword(c.UserContext(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
		case errors.Is(err, user.ErrPasswordRequired):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
		default:
			return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
		}
	}

	if err := h.tokens.RevokeAllUserTokens(c.UserContext(), identity.UserID); err != nil {
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	clearRefreshCookie(c)
	return utils.SuccessResponse(c, nil, "Password changed, please log in again")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, ErrUnknownUser.Error(), fiber.StatusUnauthorized)
	}

	u, err := h.userRepo.FindByID(c.UserContext(), identity.UserID)
	if err != nil {
		return utils.ErrorResponse(c, ErrUnknownUser.Error(), fiber.StatusUnauthorized)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user": u.ToResponse(),
	}, "Current user")
}

// deviceInfo collects descriptive request metadata. It is informational
// only and never feeds authorization decisions.
func deviceInfo(c *fiber.Ctx) session.DeviceInfo {
	return session.DeviceInfo{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
		Device:    c.Get("X-Device-Name"),
	}
}

func setRefreshCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   true,
		Path:     "/v1/auth",
		SameSite: "Strict",
		Expires:  expires,
	})
}

func clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		HTTPOnly: true,
		Secure:   true,
		Path:     "/v1/auth",
		SameSite: "Strict",
		Expires:  time.Now().Add(-time.Hour),
	})
}
