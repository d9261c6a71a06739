package auth

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/gigconnect/server/internal/alerts"
	"github.com/gigconnect/server/internal/db"
)

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"required"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// issueToken signs a 72h session token carrying user_id and role.
func issueToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	// Admin accounts are never self-service; see BootstrapAdmin.
	if req.Role != "client" && req.Role != "freelancer" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be client or freelancer"})
	}
	if req.FirstName == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name, email and a password of at least 6 characters are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ctx := context.Background()
	var userID string
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, uuid.New().String(), req.FirstName, req.LastName, req.Email, string(hashed), req.Role).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	signed, err := issueToken(userID, req.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	_ = alerts.EnqueueWelcomeEmail(userID, req.Email, req.FirstName)

	return c.JSON(http.StatusOK, SignupResponse{Token: signed})
}
