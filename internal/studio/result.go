package studio

import (
	"encoding/json"
	"fmt"

	"github.com/fpang/luxstudio/internal/media"
)

// ResultKind is the discriminant stored with a persisted result.
type ResultKind string

const (
	KindText  ResultKind = "text"
	KindImage ResultKind = "image"
	KindVideo ResultKind = "video"
)

// Result is the normalized output of one execution. The concrete type is
// one of TextResult, ImagesResult or VideoResult.
type Result interface {
	Kind() ResultKind
	sealed()
}

// TextResult is an analysis report.
type TextResult struct {
	Text string
}

// ImagesResult holds generated or edited images in angle order.
type ImagesResult struct {
	Images []media.DataURI
}

// VideoResult is the retrieval location of a generated clip. The URI embeds
// the API key and expires on the provider side.
type VideoResult struct {
	URI string
}

func (TextResult) Kind() ResultKind   { return KindText }
func (ImagesResult) Kind() ResultKind { return KindImage }
func (VideoResult) Kind() ResultKind  { return KindVideo }

func (TextResult) sealed()   {}
func (ImagesResult) sealed() {}
func (VideoResult) sealed()  {}

type resultEnvelope struct {
	Type    ResultKind      `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalResult encodes r as {"type": ..., "content": ...}.
func MarshalResult(r Result) ([]byte, error) {
	var content any
	switch v := r.(type) {
	case TextResult:
		content = v.Text
	case ImagesResult:
		images := v.Images
		if images == nil {
			images = []media.DataURI{}
		}
		content = images
	case VideoResult:
		content = v.URI
	default:
		return nil, fmt.Errorf("unknown result type %T", r)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resultEnvelope{Type: r.Kind(), Content: raw})
}

// UnmarshalResult decodes a tagged result produced by MarshalResult.
func UnmarshalResult(data []byte) (Result, error) {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case KindText:
		var text string
		if err := json.Unmarshal(env.Content, &text); err != nil {
			return nil, fmt.Errorf("text result: %w", err)
		}
		return TextResult{Text: text}, nil
	case KindImage:
		var images []media.DataURI
		if err := json.Unmarshal(env.Content, &images); err != nil {
			return nil, fmt.Errorf("image result: %w", err)
		}
		return ImagesResult{Images: images}, nil
	case KindVideo:
		var uri string
		if err := json.Unmarshal(env.Content, &uri); err != nil {
			return nil, fmt.Errorf("video result: %w", err)
		}
		return VideoResult{URI: uri}, nil
	default:
		return nil, fmt.Errorf("unknown result type %q", env.Type)
	}
}
