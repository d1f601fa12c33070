package auth

import "time"

// Role labels the authorization level carried inside access-token claims.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Config drives session issuing behavior.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// User represents a persisted account. The auth core only reads the
// credential fields; everything else belongs to the persistence layer.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RefreshTokenRecord is the single hashed-at-rest refresh credential kept
// per user. Rotation-on-use overwrites it; there is no history.
type RefreshTokenRecord struct {
	Hash      string
	ExpiresAt time.Time
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID    int64
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RegisterRequest captures the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a freshly minted token pair. Handlers move both values into
// cookies; neither is persisted in this form.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         UserView
}

// UserView trims sensitive fields.
type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
