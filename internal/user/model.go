package user

import "time"

type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // never return
	Role       string    `json:"role"`
	Bio        string    `json:"bio,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Skills     []string  `json:"skills,omitempty"`
	HourlyRate int64     `json:"hourly_rate,omitempty"` // minor units (paise)
	CreatedAt  time.Time `json:"created_at"`
}
