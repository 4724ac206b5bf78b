package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInvalidOtp covers every reset-code failure: missing, used, expired,
	// or mismatched. Callers must not tell the cases apart to the client.
	ErrInvalidOtp = errors.New("invalid otp")

	// Session gate failures, in check order.
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("expired session token")
)
