package models

// AuthMode is fixed at startup from configuration.
type AuthMode string

const (
	ModeRemote    AuthMode = "remote"
	ModeLocalMock AuthMode = "local-mock"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest mirrors the sign-up form. Password length and confirmation are
// checked here, at the boundary, and never again by the session manager.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// SessionState is a snapshot of the session manager's derived flags.
type SessionState struct {
	Mode          AuthMode     `json:"mode"`
	Authenticated bool         `json:"authenticated"`
	IsAdmin       bool         `json:"is_admin"`
	IsStudent     bool         `json:"is_student"`
	User          *UserProfile `json:"user,omitempty"`
}

// AuthEventType names an out-of-band change reported by the remote identity provider.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
)

// AuthEvent carries the identity the provider now reports; UserID is empty on sign-out.
type AuthEvent struct {
	Type   AuthEventType
	UserID string
}
