package studio

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fpang/luxstudio/internal/chat"
	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/metrics"
	"google.golang.org/genai"
)

// VideoResolution is requested for every clip.
const VideoResolution = "1080p"

// GenerateVideo starts a clip for prompt and waits for it, polling the
// operation every PollOptions.Interval. The returned location carries the
// credential as its key parameter so the clip can be fetched afterwards.
func (e *Engine) GenerateVideo(ctx context.Context, credential, prompt string, ratio AspectRatio) (location string, err error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrMissingPrompt
	}
	videoRatio := VideoRatio(ratio)
	logger := logging.FromContext(ctx)

	start := time.Now()
	rec := e.record("video").Property("aspectRatio", string(videoRatio))
	polls := 0
	defer func() {
		rec.Metric("Polls", float64(polls), metrics.UnitCount)
		e.finish(ctx, rec, start, err)
	}()

	gw, err := e.gateway(ctx, credential)
	if err != nil {
		return "", err
	}

	logger.Info().Str("model", e.models.Video).Str("aspect_ratio", string(videoRatio)).Msg("Starting video generation")
	op, err := gw.GenerateVideos(ctx, e.models.Video, prompt, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     VideoResolution,
		AspectRatio:    string(videoRatio),
	})
	if err != nil {
		return "", videoError(err)
	}
	if op == nil {
		return "", ErrNoVideo
	}

	// The last wait is shortened to the remaining budget so the operation
	// is checked once more at the deadline.
	var deadline time.Time
	if e.poll.MaxWait > 0 {
		deadline = e.now().Add(e.poll.MaxWait)
	}
	for !op.Done {
		wait := e.poll.Interval
		if !deadline.IsZero() {
			remaining := deadline.Sub(e.now())
			if remaining <= 0 {
				return "", fmt.Errorf("%w after %s", ErrVideoTimeout, e.poll.MaxWait)
			}
			wait = min(wait, remaining)
		}
		if err := e.sleep(ctx, wait); err != nil {
			return "", err
		}
		polls++
		logger.Debug().Int("poll", polls).Msg("Checking video operation")
		op, err = gw.GetVideosOperation(ctx, op)
		if err != nil {
			return "", videoError(err)
		}
		if op == nil {
			return "", ErrNoVideo
		}
	}

	if len(op.Error) > 0 {
		return "", fmt.Errorf("%w: %v", ErrVideoFailed, op.Error)
	}
	uri := videoURI(op)
	if uri == "" {
		return "", ErrNoVideo
	}
	location, err = withKey(uri, credential)
	if err != nil {
		return "", err
	}
	logger.Info().Int("polls", polls).Dur("duration", time.Since(start)).Msg("Video generation complete")
	return location, nil
}

func videoURI(op *genai.GenerateVideosOperation) string {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return ""
	}
	v := op.Response.GeneratedVideos[0]
	if v == nil || v.Video == nil {
		return ""
	}
	return v.Video.URI
}

// videoError maps a 403 to ErrVideoBillingRequired; other errors pass through.
func videoError(err error) error {
	if chat.IsForbidden(err) {
		return fmt.Errorf("%w: %w", ErrVideoBillingRequired, err)
	}
	return err
}

// withKey appends the credential as the "key" query parameter.
func withKey(location, credential string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid video location: %w", err)
	}
	q := u.Query()
	q.Set("key", credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
