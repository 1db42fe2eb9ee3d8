package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/metrics"
	"google.golang.org/genai"
)

// Generate produces one to three images for prompt. With a reference image,
// or on the fast tier, it runs the photoshoot: one call per angle, strictly
// in order. A failed angle is logged and skipped; a quota failure stops the
// batch. The call fails only when no image was produced.
func (e *Engine) Generate(ctx context.Context, credential, prompt string, ratio AspectRatio, size ImageSize, reference media.DataURI) (images []media.DataURI, err error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrMissingPrompt
	}
	if !ratio.Valid() {
		ratio = Ratio1x1
	}
	if !size.Valid() {
		size = Size1K
	}

	plan := PlanGenerate(e.models, ratio, size, !reference.IsZero())
	logger := logging.FromContext(ctx)

	start := time.Now()
	rec := e.record("generate").
		Dimension("Tier", string(plan.Tier)).
		Property("aspectRatio", string(plan.AspectRatio)).
		Property("hasReference", plan.HasReference)
	defer func() {
		rec.Metric("ImagesProduced", float64(len(images)), metrics.UnitCount)
		e.finish(ctx, rec, start, err)
	}()

	gw, err := e.gateway(ctx, credential)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: string(plan.AspectRatio)},
	}
	if plan.Tier == TierPremium {
		cfg.ImageConfig.ImageSize = string(plan.ImageSize)
	}

	logger.Info().
		Str("model", plan.Model).
		Str("tier", string(plan.Tier)).
		Str("aspect_ratio", string(plan.AspectRatio)).
		Int("calls", len(plan.Angles)).
		Msg("Starting image generation")

	var failures []error
	for i, angle := range plan.Angles {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}

		img, angleErr := e.generateAngle(ctx, gw, plan, cfg, prompt, angle, reference)
		if angleErr == nil {
			images = append(images, img)
			logger.Debug().Int("angle", i+1).Str("name", angle.Name).Msg("Angle generated")
			continue
		}

		failures = append(failures, fmt.Errorf("angle %d (%s): %w", i+1, angle.Name, angleErr))
		if isQuotaError(angleErr) {
			logger.Warn().Err(angleErr).Int("angle", i+1).Msg("Quota exhausted, stopping batch")
			rec.Count("QuotaStops")
			break
		}
		logger.Warn().Err(angleErr).Int("angle", i+1).Msg("Angle failed, continuing with next angle")
	}

	if len(images) > 0 {
		if len(failures) > 0 {
			rec.Metric("AnglesFailed", float64(len(failures)), metrics.UnitCount)
		}
		return images, nil
	}
	if len(failures) == 0 {
		return nil, ErrBatchFailed
	}
	return nil, batchError(failures)
}

func (e *Engine) generateAngle(ctx context.Context, gw Gateway, plan ImagePlan, cfg *genai.GenerateContentConfig, prompt string, angle Angle, reference media.DataURI) (media.DataURI, error) {
	var image media.DataURI
	if plan.Tier == TierFast {
		image = reference
	}
	contents, err := imageContents(image, plan.prompt(prompt, angle))
	if err != nil {
		return "", err
	}
	resp, err := e.generateImages(ctx, gw, plan.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	img, ok := firstImage(resp)
	if !ok {
		return "", ErrNoImage
	}
	return img, nil
}

// batchError folds the per-angle failures of an empty batch into one error.
// The result always matches ErrBatchFailed; a quota stop additionally
// matches ErrQuotaExhausted.
func batchError(failures []error) error {
	joined := errors.Join(failures...)
	if isQuotaError(failures[len(failures)-1]) {
		return fmt.Errorf("%w: %w: %w", ErrBatchFailed, ErrQuotaExhausted, joined)
	}
	return fmt.Errorf("%w: %w", ErrBatchFailed, joined)
}
