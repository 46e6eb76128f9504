package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docudrop-backend/internal/config"
)

// CORSConfig returns CORS middleware restricted to the configured frontend.
// Without a configured domain it falls back to local development origins.
func CORSConfig(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.Domain == "" {
		origins := []string{"http://localhost:3000", "http://localhost:4200"}
		if cfg.FrontendURL != "" {
			origins = append(origins, cfg.FrontendURL)
		}
		return middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     origins,
			AllowMethods:     []string{echo.GET, echo.POST, echo.OPTIONS},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			AllowCredentials: true,
			MaxAge:           86400,
		})
	}

	// Production: HTTPS only, except for explicit local domains.
	allowedOrigins := []string{"https://" + cfg.Domain}
	if strings.Contains(cfg.Domain, "localhost") || strings.Contains(cfg.Domain, "127.0.0.1") {
		allowedOrigins = append(allowedOrigins, "http://"+cfg.Domain)
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers to all responses.
func SecurityHeaders(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			csp := "default-src 'none'; frame-ancestors 'self'"
			if cfg.Domain != "" && !strings.Contains(cfg.Domain, "localhost") {
				csp = "default-src 'none'; frame-ancestors https://" + cfg.Domain
			}
			h.Set("Content-Security-Policy", csp)

			// HSTS only when the request actually arrived over HTTPS.
			if c.Request().Header.Get("X-Forwarded-Proto") == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}
