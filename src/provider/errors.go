package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidURL         = errors.New("invalid build URL")
	ErrLogUnavailable     = errors.New("log unavailable")
	ErrAlreadyExists      = errors.New("artifact already downloaded")
	ErrDownloadInProgress = errors.New("artifact download already in progress")
	ErrPermissionDenied   = errors.New("storage permission denied")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateKeyName   = errors.New("duplicate key name")
)

// HTTPError is a non-2xx response from the REST API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Azure DevOps API error %d: %s", e.StatusCode, e.Body)
}

// Is lets HTTPError match the sentinel kinds it represents.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return true
	case ErrAuthFailed:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// ValidationError reports a missing or malformed local input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PermissionDeniedError is returned when storage permission is refused.
// SettingsHint tells the user where the permission can be granted.
type PermissionDeniedError struct {
	Path         string
	SettingsHint string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("storage permission denied for %s", e.Path)
}

func (e *PermissionDeniedError) Unwrap() error {
	return ErrPermissionDenied
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts errors into user-friendly messages for terminal output.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var permErr *PermissionDeniedError
	switch {
	case errors.Is(err, ErrInvalidURL):
		return &UserError{
			Message: "Invalid build URL",
			Hint:    "Supported formats:\n  - https://dev.azure.com/org/project/_build/results?buildId=123\n  - https://org.visualstudio.com/project/_build/results?buildId=123",
			Err:     err,
		}
	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your personal access token is valid and has Build and Code read scopes.\n  - Set AZDO_PAT (and AZDO_ORG)",
			Err:     err,
		}
	case errors.Is(err, ErrNotFound):
		return &UserError{
			Message: "Resource not found",
			Hint:    "Check the organization, project and identifiers, and that you have access to the project.",
			Err:     err,
		}
	case errors.As(err, &permErr):
		return &UserError{
			Message: "Storage permission denied",
			Hint:    permErr.SettingsHint,
			Err:     err,
		}
	case errors.Is(err, ErrAlreadyExists):
		return &UserError{
			Message: "Artifact already downloaded",
			Hint:    "Delete the existing file to download it again.",
			Err:     err,
		}
	}

	return err
}
