package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/config"
)

const (
	ContextKeyAccount       = "account"
	ContextKeySessionToken  = "session_token"
	ContextKeySessionClaims = "session_claims"
	ContextKeyRenewedToken  = "session_renewed_token"
	ContextKeyRenewedClaims = "session_renewed_claims"
)

type accountFinder interface {
	FindAccount(ctx context.Context, id string) (*entity.Account, error)
}

// OwnerLookup returns the account id owning the resource, or "" when it does not exist.
type OwnerLookup func(ctx context.Context, id string) (string, error)

type AuthMiddleware struct {
	sessions service.SessionService
	accounts accountFinder
	cookie   config.CookieConfig
}

func NewAuthMiddleware(sessions service.SessionService, accounts accountFinder, cookie config.CookieConfig) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		accounts: accounts,
		cookie:   cookie,
	}
}

// RequireAuth verifies the session token, renews it when due and loads the calling account.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := m.extractToken(c)
		if raw == "" {
			logrus.WithField("reason", "missing").Debug("Session rejected")
			return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.CodeTokenMissing, "authentication required"))
		}

		claims, err := m.sessions.Verify(raw)
		if err != nil {
			logrus.WithField("reason", rejectionReason(err)).Debug("Session rejected")
			return c.JSON(http.StatusForbidden, dto.NewErrorResponse(dto.CodeTokenInvalid, "invalid session"))
		}

		account, err := m.accounts.FindAccount(c.Request().Context(), claims.Identity())
		if err != nil {
			if errors.Is(err, service.ErrAccountNotFound) {
				logrus.WithFields(logrus.Fields{
					"reason":     "account_gone",
					"account_id": claims.Identity(),
				}).Warn("Session rejected")
				return c.JSON(http.StatusForbidden, dto.NewErrorResponse(dto.CodeTokenInvalid, "invalid session"))
			}
			logrus.WithError(err).Error("Failed to load session account")
			return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeInternalError, "internal server error"))
		}

		renewed, renewedClaims, err := m.sessions.MaybeRenew(claims)
		if err != nil {
			logrus.WithError(err).Error("Failed to renew session")
			return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeInternalError, "internal server error"))
		}
		if renewed != "" {
			SetSessionCookie(c, m.cookie, renewed, renewedClaims.Expiry())
			c.Set(ContextKeyRenewedToken, renewed)
			c.Set(ContextKeyRenewedClaims, renewedClaims)
			logrus.WithField("account_id", account.ID).Debug("Session renewed")
		}

		c.Set(ContextKeyAccount, account)
		c.Set(ContextKeySessionToken, raw)
		c.Set(ContextKeySessionClaims, claims)

		return next(c)
	}
}

// RequireOwnership rejects the request unless the resource named by the path parameter belongs to the
// authenticated account. It must run after RequireAuth.
func (m *AuthMiddleware) RequireOwnership(param string, lookup OwnerLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := AccountFromContext(c)
			if account == nil {
				return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.CodeTokenMissing, "authentication required"))
			}

			id := c.Param(param)
			owner, err := lookup(c.Request().Context(), id)
			if err != nil {
				logrus.WithError(err).Error("Failed to load resource owner")
				return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeInternalError, "internal server error"))
			}
			if owner == "" || owner != account.ID {
				logrus.WithFields(logrus.Fields{
					"reason":      "not_owner",
					"account_id":  account.ID,
					"resource_id": id,
				}).Warn("Access rejected")
				return c.JSON(http.StatusForbidden, dto.NewErrorResponse(dto.CodeEntityAccessForbidden, "access forbidden"))
			}

			return next(c)
		}
	}
}

func (m *AuthMiddleware) extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(m.cookie.Name); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, service.ErrRevoked):
		return "revoked"
	default:
		return "invalid"
	}
}

func AccountFromContext(c echo.Context) *entity.Account {
	account, _ := c.Get(ContextKeyAccount).(*entity.Account)
	return account
}

// SessionFromContext returns the token the caller presented and its verified claims.
func SessionFromContext(c echo.Context) (string, *token.Claims) {
	raw, _ := c.Get(ContextKeySessionToken).(string)
	claims, _ := c.Get(ContextKeySessionClaims).(*token.Claims)
	return raw, claims
}

// RenewedSessionFromContext returns the token minted by renewal during this request, if any.
func RenewedSessionFromContext(c echo.Context) (string, *token.Claims) {
	raw, _ := c.Get(ContextKeyRenewedToken).(string)
	claims, _ := c.Get(ContextKeyRenewedClaims).(*token.Claims)
	return raw, claims
}
