package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

type UpdateProfileRequest struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Bio        string   `json:"bio"`
	AvatarURL  string   `json:"avatar_url"`
	Skills     []string `json:"skills"`
	HourlyRate int64    `json:"hourly_rate"` // minor units (paise)
}

// PATCH /user/profile
func UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.HourlyRate < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hourly_rate must not be negative"})
	}

	query := `
		UPDATE users
		SET first_name = COALESCE(NULLIF($1, ''), first_name),
		    last_name = COALESCE(NULLIF($2, ''), last_name),
		    bio = COALESCE(NULLIF($3, ''), bio),
		    avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		    skills = CASE WHEN $5::text[] IS NULL THEN skills ELSE $5::text[] END,
		    hourly_rate = CASE WHEN $6::bigint = 0 THEN hourly_rate ELSE $6::bigint END,
		    updated_at = NOW()
		WHERE id = $7
	`
	_, err := db.Conn.Exec(c.Request().Context(), query,
		req.FirstName, req.LastName, req.Bio, req.AvatarURL, req.Skills, req.HourlyRate, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "profile updated successfully",
	})
}
