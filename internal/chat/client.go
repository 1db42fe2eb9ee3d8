// Package chat is the boundary to the Gemini API. Client wraps the genai SDK
// with logging and timing; Classify turns SDK failures into the error classes
// the studio reacts to (quota, billing/permission, invalid key, network).
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Client calls the Gemini API with a single user-supplied API key.
type Client struct {
	genai *genai.Client
}

// NewClient creates a Gemini API client for apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{genai: c}, nil
}

// GenerateContent issues one generateContent call.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	log.Debug().
		Str("model", model).
		Int("parts", countParts(contents)).
		Int("inline_bytes", inlineBytes(contents)).
		Msg("Sending generateContent request")

	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		log.Debug().Err(err).Str("model", model).Dur("duration", time.Since(start)).Msg("generateContent failed")
		return nil, err
	}

	log.Debug().
		Str("model", model).
		Int("candidates", len(resp.Candidates)).
		Dur("duration", time.Since(start)).
		Msg("generateContent complete")
	return resp, nil
}

// GenerateVideos starts a long-running video generation.
func (c *Client) GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	log.Debug().Str("model", model).Int("prompt_length", len(prompt)).Msg("Starting video generation")
	op, err := c.genai.Models.GenerateVideos(ctx, model, prompt, nil, config)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("operation", op.Name).Bool("done", op.Done).Msg("Video operation created")
	return op, nil
}

// GetVideosOperation refreshes a video operation's status.
func (c *Client) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return c.genai.Operations.GetVideosOperation(ctx, op, nil)
}

// GenerateText sends a text-only prompt and returns the concatenated response text.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("received empty response from Gemini API")
	}
	return resp.Text(), nil
}

func countParts(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		if c != nil {
			n += len(c.Parts)
		}
	}
	return n
}

func inlineBytes(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		if c == nil {
			continue
		}
		for _, p := range c.Parts {
			if p != nil && p.InlineData != nil {
				n += len(p.InlineData.Data)
			}
		}
	}
	return n
}
