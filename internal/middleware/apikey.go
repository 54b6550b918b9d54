package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the shared secret for write endpoints.
const APIKeyHeader = "x-api-key"

// APIKeyAuth returns middleware that validates the x-api-key header.
// An empty apiKey disables the check (local development).
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	expected := []byte(apiKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			key := c.Request().Header.Get(APIKeyHeader)
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing x-api-key header",
				})
			}

			if subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid API key",
				})
			}

			return next(c)
		}
	}
}
