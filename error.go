package orderscraper

import (
	"errors"
	"fmt"
	"time"
)

// process exit codes
const (
	ExitOK                     = 0
	ExitMissingCredentials     = 1
	ExitTimeout                = 2
	ExitAuthenticationRejected = 3
	ExitManualLoginTimeout     = 4
	ExitUnexpected             = 5
)

// MissingCredentialsError means the page asks for a login and no authentication path is available.
type MissingCredentialsError struct{}

func (error MissingCredentialsError) Error() string {
	return "Detected login page, but credentials are missing. " +
		"Provide --email/--password, --storage-state, or --manual-login with --headless=false."
}

// AuthenticationRejectedError means a login was attempted but the page is still a challenge.
type AuthenticationRejectedError struct {
	URL string
}

func (error AuthenticationRejectedError) Error() string {
	return fmt.Sprintf("Login failed or requires 2FA/captcha/manual verification. (url: %v)", error.URL)
}

type ManualLoginTimeoutError struct {
	Timeout time.Duration
}

func (error ManualLoginTimeoutError) Error() string {
	return fmt.Sprintf("Manual login timeout (%v) reached before orders table became visible.", error.Timeout)
}

// WaitTimeoutError is returned when a bounded wait on the browser runs out of time.
type WaitTimeoutError struct {
	Operation string
	Err       error
}

func (error WaitTimeoutError) Error() string {
	return fmt.Sprintf("Timeout while %v: %v", error.Operation, error.Err)
}

func (error WaitTimeoutError) Unwrap() error {
	return error.Err
}

// ExitCode maps an error returned by Run to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var missing MissingCredentialsError
	var rejected AuthenticationRejectedError
	var manual ManualLoginTimeoutError
	var timeout WaitTimeoutError
	switch {
	case errors.As(err, &missing):
		return ExitMissingCredentials
	case errors.As(err, &rejected):
		return ExitAuthenticationRejected
	case errors.As(err, &manual):
		return ExitManualLoginTimeout
	case errors.As(err, &timeout):
		return ExitTimeout
	default:
		return ExitUnexpected
	}
}
