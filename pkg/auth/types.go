package auth

import (
	"encoding/json"
	"time"
)

// UsernamePrefix derives the stable local username from the external id.
const UsernamePrefix = "usos_"

// Principal is a local account for an externally authenticated user.
// Principals are only ever created by reconciliation after a successful
// provider login; they never authenticate by password.
type Principal struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Token is a long-lived bearer credential bound to exactly one principal.
// One active token per principal; repeat logins reuse the same value.
type Token struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Key       string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the server-side session state bound to a principal. The
// profile snapshot captured at login time is kept for diagnostics.
type Session struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Profile   json.RawMessage `json:"profile,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
