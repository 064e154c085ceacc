package staff

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/auth"
)

// AuthHandler serves sign-in, sign-out and the current-user lookup.
type AuthHandler struct {
	svc         *Service
	issuer      *auth.TokenIssuer
	revocations auth.RevocationStore
	logger      zerolog.Logger
}

func NewAuthHandler(svc *Service, issuer *auth.TokenIssuer, revocations auth.RevocationStore, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:         svc,
		issuer:      issuer,
		revocations: revocations,
		logger:      logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterRoutes mounts the auth endpoints. /auth/login must be listed in
// the JWT skipper's public paths.
func (h *AuthHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *Admin    `json:"user"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	a, err := h.svc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		h.logger.Warn().Str("username", req.Username).Str("remote_ip", c.RealIP()).Msg("failed login")
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	}
	if err != nil {
		return apierr.HTTP(err, "admin")
	}

	token, claims, err := h.issuer.Issue(a.ID.String(), a.Username, []string{a.Role})
	if err != nil {
		return apierr.HTTP(err, "token")
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      a,
	})
}

// Logout revokes the presented token until its natural expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil || claims.ID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	expires := time.Now()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := h.revocations.Revoke(c.Request().Context(), claims.ID, expires); err != nil {
		return apierr.HTTP(err, "token")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	a, err := h.svc.GetAdmin(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "admin")
	}
	return c.JSON(http.StatusOK, a)
}
