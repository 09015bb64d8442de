// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrTOTPRequired         = errors.New("totp code required")
	ErrInvalidTOTPCode      = errors.New("invalid totp code")

	// Device errors
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNotAuthenticated = errors.New("caller is not authenticated")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrInvalidPlanType      = errors.New("invalid plan type")

	// Suspicious activity errors
	ErrActivityNotFound = errors.New("suspicious activity not found")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
