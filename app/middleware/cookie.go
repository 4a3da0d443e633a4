package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/config"
)

func SetSessionCookie(c echo.Context, cfg config.CookieConfig, raw string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    raw,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func ClearSessionCookie(c echo.Context, cfg config.CookieConfig) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}
