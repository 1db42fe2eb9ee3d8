package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/luxstudio/internal/auth"
	"github.com/fpang/luxstudio/internal/session"
	"github.com/fpang/luxstudio/internal/studio"
)

// ResolveFile checks that path names a regular file and returns it absolute.
func ResolveFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ErrorMessage turns a command failure into the line shown to the user.
func ErrorMessage(err error) string {
	var validationErr *auth.ValidationError
	switch {
	case errors.As(err, &validationErr):
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			return "No API key configured. Run 'luxstudio login' or set GEMINI_API_KEY"
		case auth.ErrTypeInvalidKey:
			return "Invalid API key. Please check your API key and try again"
		case auth.ErrTypeNetworkError:
			return "Network error. Please check your internet connection"
		case auth.ErrTypeQuotaExceeded:
			return "API quota exceeded. Please try again later or check your usage limits"
		default:
			return "API key validation failed: " + err.Error()
		}
	case errors.Is(err, session.ErrNoCredential), errors.Is(err, auth.ErrNoKey):
		return "API key not found. Run 'luxstudio login' first"
	case errors.Is(err, session.ErrCredentialRejected):
		return session.ErrCredentialRejected.Error() + ". Run 'luxstudio login' with a new key"
	case errors.Is(err, studio.ErrVideoBillingRequired):
		return "Video generation needs a key from a project with billing enabled"
	case errors.Is(err, studio.ErrQuotaExhausted):
		return "Generation quota exhausted. Please try again later"
	default:
		return err.Error()
	}
}
