package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/metrics"
	"google.golang.org/genai"
)

// Analyze asks the analysis model for a consultant-style critique of image.
// An empty prompt selects DefaultAnalysisPrompt. A response without text
// yields AnalysisUnavailable rather than an error.
func (e *Engine) Analyze(ctx context.Context, credential string, image media.DataURI, prompt string) (report string, err error) {
	if image.IsZero() {
		return "", ErrMissingImage
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultAnalysisPrompt
	}

	start := time.Now()
	rec := e.record("analyze")
	defer func() { e.finish(ctx, rec, start, err) }()

	gw, err := e.gateway(ctx, credential)
	if err != nil {
		return "", err
	}
	contents, err := imageContents(image, prompt)
	if err != nil {
		return "", err
	}

	logging.FromContext(ctx).Info().Str("model", e.models.Analyze).Msg("Analyzing image")
	resp, err := gw.GenerateContent(ctx, e.models.Analyze, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(AnalysisSystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("analysis failed: %w", err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		return AnalysisUnavailable, nil
	}
	return text, nil
}

// Edit applies instruction to image and returns exactly one edited image.
func (e *Engine) Edit(ctx context.Context, credential string, image media.DataURI, instruction string) (images []media.DataURI, err error) {
	if image.IsZero() {
		return nil, ErrMissingImage
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrMissingPrompt
	}

	start := time.Now()
	rec := e.record("edit")
	defer func() { e.finish(ctx, rec, start, err) }()

	gw, err := e.gateway(ctx, credential)
	if err != nil {
		return nil, err
	}
	contents, err := imageContents(image, editPrompt(instruction))
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().Str("model", e.models.FastImage).Msg("Editing image")
	resp, err := e.generateImages(ctx, gw, e.models.FastImage, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("edit failed: %w", err)
	}
	edited, ok := firstImage(resp)
	if !ok {
		return nil, ErrNoImage
	}
	rec.Metric("ImagesProduced", 1, metrics.UnitCount)
	return []media.DataURI{edited}, nil
}

// Transcribe converts dictated audio to text. A response without text
// yields the empty string.
func (e *Engine) Transcribe(ctx context.Context, credential string, audio media.DataURI) (text string, err error) {
	if audio.IsZero() {
		return "", ErrMissingAudio
	}
	data, err := audio.Bytes()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(data) == 0 {
		return "", ErrMissingAudio
	}

	start := time.Now()
	rec := e.record("transcribe").Metric("AudioBytes", float64(len(data)), metrics.UnitBytes)
	defer func() { e.finish(ctx, rec, start, err) }()

	gw, err := e.gateway(ctx, credential)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, audio.MIMEType()),
		genai.NewPartFromText(TranscriptionInstruction),
	}, genai.RoleUser)}

	resp, err := gw.GenerateContent(ctx, e.models.Transcribe, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Text()), nil
}
