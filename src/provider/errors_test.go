package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHTTPError_Is(t *testing.T) {
	tests := []struct {
		status       int
		wantAuth     bool
		wantNotFound bool
	}{
		{status: 401, wantAuth: true},
		{status: 403, wantAuth: true},
		{status: 404, wantNotFound: true},
		{status: 500},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := fmt.Errorf("list builds: %w", &HTTPError{StatusCode: tt.status, Body: "x"})

			if !errors.Is(err, ErrNetworkFailure) {
				t.Error("errors.Is(err, ErrNetworkFailure) = false, want true")
			}
			if got := errors.Is(err, ErrAuthFailed); got != tt.wantAuth {
				t.Errorf("errors.Is(err, ErrAuthFailed) = %v, want %v", got, tt.wantAuth)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v", got, tt.wantNotFound)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "branch", Message: "select a branch"}
	if !errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false, want true")
	}
	if err.Error() != "branch: select a branch" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
	}{
		{
			name:        "invalid URL",
			err:         fmt.Errorf("%w: https://invalid.com", ErrInvalidURL),
			wantMessage: "Invalid build URL",
			wantHint:    "dev.azure.com",
		},
		{
			name:        "401 response",
			err:         &HTTPError{StatusCode: 401},
			wantMessage: "Authentication failed",
			wantHint:    "AZDO_PAT",
		},
		{
			name:        "404 response",
			err:         fmt.Errorf("get timeline: %w", &HTTPError{StatusCode: 404}),
			wantMessage: "Resource not found",
			wantHint:    "organization",
		},
		{
			name:        "permission denied",
			err:         &PermissionDeniedError{Path: "/x", SettingsHint: "open settings"},
			wantMessage: "Storage permission denied",
			wantHint:    "open settings",
		},
		{
			name:        "already exists",
			err:         fmt.Errorf("download: %w", ErrAlreadyExists),
			wantMessage: "Artifact already downloaded",
			wantHint:    "Delete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint should contain %q, got %q", tt.wantHint, userErr.Hint)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error does not unwrap to the original")
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	if WrapError(nil) != nil {
		t.Error("WrapError(nil) != nil")
	}

	plain := errors.New("something went wrong")
	if got := WrapError(plain); got != plain {
		t.Errorf("WrapError() = %v, want original error", got)
	}
	if got := WrapError(ErrLogUnavailable); got != ErrLogUnavailable {
		t.Errorf("WrapError(ErrLogUnavailable) = %v, want unchanged", got)
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{
		Message: "Something went wrong",
		Hint:    "Try doing this instead",
		Err:     errors.New("original error"),
	}
	got := err.Error()

	msgIdx := strings.Index(got, "Something went wrong")
	hintIdx := strings.Index(got, "Hint: Try doing this instead")
	errIdx := strings.Index(got, "Details: original error")

	if msgIdx != 0 {
		t.Errorf("Message should be at start, found at index %d", msgIdx)
	}
	if hintIdx <= msgIdx {
		t.Errorf("Hint should come after Message, got hint at %d", hintIdx)
	}
	if errIdx <= hintIdx {
		t.Errorf("Details should come after Hint, got details at %d, hint at %d", errIdx, hintIdx)
	}
}
