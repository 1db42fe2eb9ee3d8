package chat

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"429", genai.APIError{Code: 429, Message: "Resource has been exhausted"}, KindQuota},
		{"403", genai.APIError{Code: 403, Message: "The caller does not have permission"}, KindForbidden},
		{"401", genai.APIError{Code: 401, Message: "unauthenticated"}, KindInvalidKey},
		{"400 bad key", genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}, KindInvalidKey},
		{"400 other", genai.APIError{Code: 400, Message: "Unsupported aspect ratio"}, KindUnknown},
		{"503", genai.APIError{Code: 503, Message: "overloaded"}, KindNetwork},
		{"wrapped pointer", fmt.Errorf("angle 2: %w", &genai.APIError{Code: 429}), KindQuota},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg      string
		expected ErrorKind
	}{
		{"Error 429: Too Many Requests", KindQuota},
		{"You exceeded your current quota", KindQuota},
		{"RESOURCE_EXHAUSTED", KindQuota},
		{"got status 403 from server", KindForbidden},
		{"PERMISSION_DENIED: billing not enabled", KindForbidden},
		{"API key not valid", KindInvalidKey},
		{"dial tcp: lookup generativelanguage.googleapis.com: no such host", KindNetwork},
		{"no image returned", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := Classify(errors.New(tt.msg)); got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != KindUnknown {
		t.Errorf("Classify(nil) = %v, want unknown", got)
	}
}

func TestPredicates(t *testing.T) {
	quota := errors.New("quota exceeded")
	forbidden := genai.APIError{Code: 403}
	invalid := errors.New("API_KEY_INVALID")

	if !IsQuota(quota) || IsQuota(forbidden) {
		t.Error("IsQuota mismatch")
	}
	if !IsForbidden(forbidden) || IsForbidden(quota) {
		t.Error("IsForbidden mismatch")
	}
	if !IsCredentialRejected(invalid) || !IsCredentialRejected(forbidden) || IsCredentialRejected(quota) {
		t.Error("IsCredentialRejected mismatch")
	}
}

func TestErrorKindString(t *testing.T) {
	kinds := map[ErrorKind]string{
		KindUnknown:    "unknown",
		KindQuota:      "quota",
		KindForbidden:  "forbidden",
		KindInvalidKey: "invalid_key",
		KindNetwork:    "network",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}

func TestModelsFromEnv(t *testing.T) {
	t.Setenv("LUXSTUDIO_MODEL_VIDEO", "veo-test")
	m := ModelsFromEnv()
	if m.Video != "veo-test" {
		t.Errorf("Video = %q, want veo-test", m.Video)
	}
	if m.FastImage != ModelGemini25FlashImage {
		t.Errorf("FastImage = %q, want default", m.FastImage)
	}
}
