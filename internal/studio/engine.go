package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/luxstudio/internal/chat"
	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/metrics"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"
)

// Gateway is the subset of the Gemini API the engine calls. *chat.Client
// implements it; tests substitute a fake.
type Gateway interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

// Dialer opens a gateway authenticated with credential. The engine dials on
// every operation so that a replaced key takes effect immediately.
type Dialer func(ctx context.Context, credential string) (Gateway, error)

// ChatDialer dials the real Gemini API.
func ChatDialer(ctx context.Context, credential string) (Gateway, error) {
	return chat.NewClient(ctx, credential)
}

// PollOptions controls the video operation poll loop.
type PollOptions struct {
	// Interval between status checks.
	Interval time.Duration
	// MaxWait bounds the total wait. Zero waits until the operation finishes
	// or the context is cancelled.
	MaxWait time.Duration
}

// DefaultPollInterval is the delay between video status checks.
const DefaultPollInterval = 5 * time.Second

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Models chat.Models
	// MaxConcurrentGenerationCalls caps in-flight image generation calls
	// across all executions sharing the engine. Default 1.
	MaxConcurrentGenerationCalls int64
	Poll                         PollOptions
	// Metrics receives one EMF document per operation. Nil disables metrics.
	Metrics *metrics.Sink
	// Sleep waits between poll attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now reads the clock for the poll deadline. Defaults to time.Now.
	Now func() time.Time
}

// Engine turns studio requests into gateway calls. It holds no per-session
// state and is safe for concurrent use.
type Engine struct {
	dial    Dialer
	models  chat.Models
	genSem  *semaphore.Weighted
	poll    PollOptions
	metrics *metrics.Sink
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// New creates an Engine that opens gateways with dial.
func New(dial Dialer, opts Options) *Engine {
	if opts.Models == (chat.Models{}) {
		opts.Models = chat.DefaultModels()
	}
	if opts.MaxConcurrentGenerationCalls <= 0 {
		opts.MaxConcurrentGenerationCalls = 1
	}
	if opts.Poll.Interval <= 0 {
		opts.Poll.Interval = DefaultPollInterval
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		dial:    dial,
		models:  opts.Models,
		genSem:  semaphore.NewWeighted(opts.MaxConcurrentGenerationCalls),
		poll:    opts.Poll,
		metrics: opts.Metrics,
		sleep:   opts.Sleep,
		now:     opts.Now,
	}
}

// Models returns the model identifiers the engine calls.
func (e *Engine) Models() chat.Models {
	return e.models
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) gateway(ctx context.Context, credential string) (Gateway, error) {
	gw, err := e.dial(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to open Gemini client: %w", err)
	}
	return gw, nil
}

// generateImages performs one image-producing call while holding a slot of
// the generation semaphore.
func (e *Engine) generateImages(ctx context.Context, gw Gateway, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := e.genSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.genSem.Release(1)
	return gw.GenerateContent(ctx, model, contents, cfg)
}

// record starts a metrics document for op.
func (e *Engine) record(op string) *metrics.Recorder {
	return e.metrics.New().Dimension("Operation", op)
}

func (e *Engine) finish(ctx context.Context, rec *metrics.Recorder, start time.Time, err error) {
	rec.Duration("LatencyMs", time.Since(start))
	if err != nil {
		rec.Count("Errors").Property("errorKind", chat.Classify(err).String())
	}
	rec.Flush()
	logging.FromContext(ctx).Debug().Err(err).Dur("duration", time.Since(start)).Msg("Studio operation finished")
}

// imageContents builds the single user turn: optional image part then text.
func imageContents(image media.DataURI, text string) ([]*genai.Content, error) {
	var parts []*genai.Part
	if !image.IsZero() {
		data, err := image.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, image.MIMEType()))
	}
	parts = append(parts, genai.NewPartFromText(text))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

// firstImage returns the first inline image of the first candidate as a data URI.
func firstImage(resp *genai.GenerateContentResponse) (media.DataURI, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", false
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = media.GeneratedImageMIMEType
		}
		return media.NewDataURI(mime, part.InlineData.Data), true
	}
	return "", false
}

func isQuotaError(err error) bool {
	if chat.IsQuota(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
