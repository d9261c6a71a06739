package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

// AdminGuard re-checks the role against the database so a stale token cannot
// keep admin access after a demotion.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := c.Get("user_id").(string)
		if !ok || userID == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}

		var role string
		err := db.Conn.QueryRow(context.Background(),
			`SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
		if err != nil || role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
		}
		return next(c)
	}
}
