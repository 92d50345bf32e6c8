package identity

import "time"

// User is the identity record. PasswordHash and the reset-token fields are
// never serialized; responses go through Public().
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	EmailVerified bool

	// ResetToken is set by the forgot-password flow and cleared on a
	// successful reset. A zero ResetTokenExpiresAt means no token is pending.
	ResetToken          string
	ResetTokenExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the sanitized projection of User returned by every response
// path. Sensitive fields cannot leak because they are not part of the type.
type PublicUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public whitelists the fields safe to return to callers.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// Role groups permissions under a unique name.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a named capability.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TokenPair carries freshly issued bearer credentials.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned by register and login: the sanitized user record
// alongside a new token pair.
type AuthResult struct {
	User   PublicUser `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// UserPage is a sanitized page of users ordered by creation time descending.
type UserPage struct {
	Users      []PublicUser `json:"users"`
	Pagination Pagination   `json:"pagination"`
}
