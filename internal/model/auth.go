package model

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *Me    `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh/ and /auth/logout/.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ChangePasswordRequest is the body of PUT /auth/password/.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}
