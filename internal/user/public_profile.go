package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

// GET /user/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	var (
		id         string
		firstName  string
		lastName   string
		bio        string
		avatarURL  string
		skills     []string
		hourlyRate int64
		role       string
		createdAt  time.Time
	)

	query := `
		SELECT id, first_name, last_name, bio, avatar_url, skills, hourly_rate, role, created_at
		FROM users
		WHERE id = $1
	`
	err := db.Conn.QueryRow(context.Background(), query, userID).Scan(
		&id, &firstName, &lastName, &bio, &avatarURL, &skills, &hourlyRate, &role, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}

	profile := echo.Map{
		"id":         id,
		"first_name": firstName,
		"last_name":  lastName,
		"bio":        bio,
		"avatar_url": avatarURL,
		"role":       role,
		"created_at": createdAt.Format(time.RFC3339),
	}
	// Rate and skills only mean something for freelancers.
	if role == "freelancer" {
		profile["skills"] = skills
		profile["hourly_rate"] = hourlyRate
	}

	return c.JSON(http.StatusOK, profile)
}
