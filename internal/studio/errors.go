package studio

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request rejected before any gateway call.
	ErrValidation = errors.New("invalid request")
	// ErrMissingImage is returned when a mode that needs an image has none.
	ErrMissingImage = fmt.Errorf("%w: an uploaded image is required", ErrValidation)
	// ErrMissingPrompt is returned when a mode that needs a prompt has none.
	ErrMissingPrompt = fmt.Errorf("%w: a prompt is required", ErrValidation)
	// ErrMissingAudio is returned when a dictation has no audio.
	ErrMissingAudio = fmt.Errorf("%w: audio is required", ErrValidation)

	// ErrNoImage means a successful edit response carried no image part.
	ErrNoImage = errors.New("no image returned by the model")
	// ErrQuotaExhausted means a batch stopped on a quota or rate-limit failure
	// before producing any image.
	ErrQuotaExhausted = errors.New("quota exhausted, try again later or use a key with a higher limit")
	// ErrBatchFailed means every angle of a generation batch failed.
	ErrBatchFailed = errors.New("image generation failed")
	// ErrNoVideo means the finished video operation carried no clip.
	ErrNoVideo = errors.New("video generation finished without a video")
	// ErrVideoBillingRequired replaces a 403 from the video model: Veo needs a
	// key from a billing-enabled project.
	ErrVideoBillingRequired = errors.New("video generation requires an API key from a project with billing enabled")
	// ErrVideoTimeout means the video operation did not finish within the poll budget.
	ErrVideoTimeout = errors.New("video generation did not finish in time")
	// ErrVideoFailed wraps an error reported by the finished video operation.
	ErrVideoFailed = errors.New("video generation failed")
)
