// Package errors provides structured error handling for the ROI tracker.
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

// Exit codes.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitNetwork  = 3 // Upstream provider unreachable or failing
	ExitNotFound = 4 // Resource not found
	ExitBusy     = 5 // Another run is already in progress
)

// TrackerError is the structured error type for the ROI tracker.
type TrackerError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TrackerError) Error() string {
	msg := e.Message

	// Sorted for deterministic output
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

func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TrackerError. Two errors match when their codes match.
func (e *TrackerError) Is(target error) bool {
	var t *TrackerError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &TrackerError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TrackerError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &TrackerError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Period validation errors. Messages are shown to the user verbatim.
	ErrNoAddressSelected = &TrackerError{
		Code:     "NO_ADDRESS_SELECTED",
		Message:  "No address selected",
		ExitCode: ExitInput,
	}

	ErrMissingDateField = &TrackerError{
		Code:     "MISSING_DATE_FIELD",
		Message:  "Please fill both date fields",
		ExitCode: ExitInput,
	}

	ErrInvalidDate = &TrackerError{
		Code:     "INVALID_DATE",
		Message:  "Invalid date",
		ExitCode: ExitInput,
	}

	ErrInvalidPeriodOrder = &TrackerError{
		Code:     "INVALID_PERIOD_ORDER",
		Message:  "Invalid period. Please select a start date that occurs before the end date.",
		ExitCode: ExitInput,
	}

	ErrFutureDateNotAllowed = &TrackerError{
		Code:     "FUTURE_DATE_NOT_ALLOWED",
		Message:  "Invalid date. I can't yet predict the future...",
		ExitCode: ExitInput,
	}

	ErrUnknownPeriod = &TrackerError{
		Code:     "UNKNOWN_PERIOD",
		Message:  "unknown period",
		ExitCode: ExitInput,
	}

	// Address errors.
	ErrInvalidAddress = &TrackerError{
		Code:     "INVALID_ADDRESS",
		Message:  "Invalid address",
		ExitCode: ExitInput,
	}

	ErrInvalidChecksum = &TrackerError{
		Code:     "INVALID_CHECKSUM",
		Message:  "invalid address checksum",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &TrackerError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	// Provider errors.
	ErrNetworkError = &TrackerError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitNetwork,
	}

	ErrBlockLookup = &TrackerError{
		Code:     "BLOCK_LOOKUP_FAILED",
		Message:  "could not resolve a block for the selected date",
		ExitCode: ExitNetwork,
	}

	ErrPriceUnavailable = &TrackerError{
		Code:     "PRICE_UNAVAILABLE",
		Message:  "Failed to fetch Ether price.",
		ExitCode: ExitNetwork,
	}

	// Workflow errors.
	ErrRunInProgress = &TrackerError{
		Code:     "RUN_IN_PROGRESS",
		Message:  "a tracking run is already in progress",
		ExitCode: ExitBusy,
	}

	ErrRunCanceled = &TrackerError{
		Code:     "RUN_CANCELED",
		Message:  "tracking run canceled",
		ExitCode: ExitGeneral,
	}

	// Config errors.
	ErrConfigNotFound = &TrackerError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &TrackerError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &TrackerError{
		Code:       "CONFIG_UNKNOWN_KEY",
		Message:    "unknown configuration key",
		Suggestion: "run 'roi config show' to list settings",
		ExitCode:   ExitInput,
	}
)

// New creates a new TrackerError with the given code and message.
func New(code, message string) *TrackerError {
	return &TrackerError{
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

	var te *TrackerError
	if errors.As(err, &te) {
		return &TrackerError{
			Code:       te.Code,
			Message:    fmt.Sprintf("%s: %s", msg, te.Message),
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      err,
			ExitCode:   te.ExitCode,
		}
	}

	return &TrackerError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel while keeping its code.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var te *TrackerError
	if errors.As(err, &te) {
		return &TrackerError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      cause,
			ExitCode:   te.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var te *TrackerError
	if errors.As(err, &te) {
		return &TrackerError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    details,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TrackerError{
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

	var te *TrackerError
	if errors.As(err, &te) {
		return &TrackerError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TrackerError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TrackerError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// UserMessage returns the short message suitable for a user-facing notification.
// Details and causes are left out.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
