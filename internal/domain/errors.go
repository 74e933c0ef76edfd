package domain

import "errors"

var (
	// ErrQuizNotFound indicates no quiz carries the requested code.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the user does not exist in the store.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user acts on a quiz they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionNotFound indicates an unknown or expired session token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrExhaustedRetries is returned when no free quiz code was found.
	ErrExhaustedRetries = errors.New("could not generate a unique quiz code")
	// ErrAttemptState is returned for an action the attempt's state does not allow.
	ErrAttemptState = errors.New("action not allowed in current attempt state")
)

// ErrCodeTaken is returned by stores when an insert collides on the quiz code.
var ErrCodeTaken = errors.New("quiz code already taken")
