// Package errors provides structured error handling for onboard.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitAuth     = 3 // Authentication failed (wrong PIN)
	ExitNotFound = 4 // Resource not found
	ExitRemote   = 5 // Remote service refused the request
	ExitBusy     = 6 // Another registration run is in flight
)

// OnboardError is the structured error type for onboard.
type OnboardError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *OnboardError) Error() string {
	msg := e.Message

	// Details are sorted for deterministic output
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *OnboardError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for OnboardError.
func (e *OnboardError) Is(target error) bool {
	var t *OnboardError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &OnboardError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &OnboardError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &OnboardError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Credential and encryption errors.
	ErrInvalidMnemonic = &OnboardError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrInvalidPrivateKey = &OnboardError{
		Code:     "INVALID_PRIVATE_KEY",
		Message:  "invalid private key",
		ExitCode: ExitInput,
	}

	ErrMissingPIN = &OnboardError{
		Code:     "MISSING_PIN",
		Message:  "a PIN is required",
		ExitCode: ExitInput,
	}

	ErrEncryptionFailed = &OnboardError{
		Code:     "ENCRYPTION_FAILED",
		Message:  "wallet encryption produced no payload",
		ExitCode: ExitGeneral,
	}

	ErrDecryptionFailed = &OnboardError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong PIN or corrupted wallet record",
		ExitCode: ExitAuth,
	}

	// Storage errors.
	ErrStoreFailure = &OnboardError{
		Code:     "STORE_FAILURE",
		Message:  "local state store operation failed",
		ExitCode: ExitGeneral,
	}

	ErrWalletNotFound = &OnboardError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "no wallet record found",
		ExitCode: ExitNotFound,
	}

	// Registration errors.
	ErrRegistrationFailed = &OnboardError{
		Code:     "REGISTRATION_FAILED",
		Message:  "backend registration failed",
		ExitCode: ExitRemote,
	}

	ErrRegistrationInProgress = &OnboardError{
		Code:     "REGISTRATION_IN_PROGRESS",
		Message:  "a registration run is already in progress",
		ExitCode: ExitBusy,
	}

	ErrUsernameRequired = &OnboardError{
		Code:     "USERNAME_REQUIRED",
		Message:  "a username is required",
		ExitCode: ExitInput,
	}

	// Remote service errors.
	ErrNetworkError = &OnboardError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrRateLimited = &OnboardError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: ExitGeneral,
	}

	ErrNotInitialized = &OnboardError{
		Code:     "NOT_INITIALIZED",
		Message:  "client has not been initialized with a wallet key",
		ExitCode: ExitGeneral,
	}

	// Config-specific errors.
	ErrConfigNotFound = &OnboardError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &OnboardError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new OnboardError with the given code and message.
func New(code, message string) *OnboardError {
	return &OnboardError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var oe *OnboardError
	if errors.As(err, &oe) {
		return &OnboardError{
			Code:       oe.Code,
			Message:    fmt.Sprintf("%s: %s", msg, oe.Message),
			Details:    oe.Details,
			Suggestion: oe.Suggestion,
			Cause:      err,
			ExitCode:   oe.ExitCode,
		}
	}

	return &OnboardError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var oe *OnboardError
	if errors.As(err, &oe) {
		return &OnboardError{
			Code:       oe.Code,
			Message:    oe.Message,
			Details:    details,
			Suggestion: oe.Suggestion,
			Cause:      oe.Cause,
			ExitCode:   oe.ExitCode,
		}
	}

	return &OnboardError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var oe *OnboardError
	if errors.As(err, &oe) {
		return &OnboardError{
			Code:       oe.Code,
			Message:    oe.Message,
			Details:    oe.Details,
			Suggestion: suggestion,
			Cause:      oe.Cause,
			ExitCode:   oe.ExitCode,
		}
	}

	return &OnboardError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches an underlying cause while keeping the sentinel identity.
func WithCause(sentinel *OnboardError, cause error) error {
	return &OnboardError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var oe *OnboardError
	if errors.As(err, &oe) {
		return oe.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var oe *OnboardError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
