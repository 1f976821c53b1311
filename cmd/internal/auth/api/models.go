package api

import "time"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type enrollRequest struct {
	AdminSecret     string `json:"admin_secret"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginResponse struct {
	Username  string    `json:"username"`
	DeviceID  string    `json:"device_id"`
	Displaced bool      `json:"displaced"`
	Notice    string    `json:"notice,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CSRFToken string    `json:"csrf_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type meResponse struct {
	Username  string    `json:"username"`
	DeviceID  string    `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// User-facing messages.
const (
	msgMissingLogin      = "Please enter both username and password"
	msgInvalidLogin      = "Invalid username or password"
	msgDisplacedNotice   = "Your previous session has been closed."
	msgEnrolled          = "User created successfully! Now you can login!"
	msgEnrollDisabled    = "Enrollment is disabled"
	msgInvalidAdmin      = "Invalid admin secret key"
	msgMissingFields     = "Please fill all fields"
	msgPasswordMismatch  = "Passwords don't match"
	msgPasswordTooLong   = "Password is too long"
	msgWeakPassword      = "Password is too weak"
	msgInvalidUsername   = "Username contains invalid characters"
	msgUsernameExists    = "Username already exists!"
	msgUnavailable       = "Service temporarily unavailable, please retry later"
	msgSessionDisplaced  = "You have been logged out because your account was used on another device."
	msgUnauthorized      = "Please log in"
	msgTooManyAttempts   = "Too many attempts, please retry later"
	msgInvalidJSON       = "invalid request body"
	msgCSRFInvalid       = "missing or invalid csrf token"
	msgPasswordShortTmpl = "Password must be at least %d characters"
)
