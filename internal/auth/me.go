package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

// Me returns the currently authenticated user's profile
func Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var id, firstName, lastName, email, role string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, first_name, last_name, email, role FROM users WHERE id = $1`, userID).
		Scan(&id, &firstName, &lastName, &email, &role)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":         id,
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
		"role":       role,
	})
}
