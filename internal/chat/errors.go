package chat

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind categorizes a Gemini API failure by how the caller should react.
type ErrorKind int

const (
	// KindUnknown is any failure not matched below.
	KindUnknown ErrorKind = iota
	// KindQuota is rate-limit or quota exhaustion (HTTP 429, RESOURCE_EXHAUSTED).
	KindQuota
	// KindForbidden is HTTP 403: missing billing or permission on the key's project.
	KindForbidden
	// KindInvalidKey is a malformed, revoked or expired API key.
	KindInvalidKey
	// KindNetwork is a connectivity problem or a 5xx from the API.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindForbidden:
		return "forbidden"
	case KindInvalidKey:
		return "invalid_key"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Classify inspects err and returns its ErrorKind. Structured API errors are
// classified by HTTP code; anything else falls back to message keywords.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if code, msg, ok := apiError(err); ok {
		switch code {
		case 429:
			return KindQuota
		case 403:
			return KindForbidden
		case 400:
			if isInvalidKeyMessage(strings.ToLower(msg)) {
				return KindInvalidKey
			}
			return KindUnknown
		case 401:
			return KindInvalidKey
		case 500, 502, 503, 504:
			return KindNetwork
		}
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "429") ||
		strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "resource_exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return KindQuota

	case strings.Contains(errLower, "403") ||
		strings.Contains(errLower, "permission_denied") ||
		strings.Contains(errLower, "billing"):
		return KindForbidden

	case isInvalidKeyMessage(errLower):
		return KindInvalidKey

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		return KindNetwork

	default:
		return KindUnknown
	}
}

// IsQuota reports whether err signals quota or rate-limit exhaustion.
func IsQuota(err error) bool {
	return Classify(err) == KindQuota
}

// IsForbidden reports whether err is a 403-equivalent permission/billing failure.
func IsForbidden(err error) bool {
	return Classify(err) == KindForbidden
}

// IsCredentialRejected reports whether err means the key itself should be re-entered.
func IsCredentialRejected(err error) bool {
	switch Classify(err) {
	case KindInvalidKey, KindForbidden:
		return true
	}
	return false
}

func isInvalidKeyMessage(lower string) bool {
	return strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "api_key_invalid") ||
		strings.Contains(lower, "api key expired")
}

// apiError extracts code and message from a genai.APIError, whether it was
// returned by value or by pointer.
func apiError(err error) (int, string, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, val.Message, true
	}
	return 0, "", false
}
