// Package studio holds the LuxStudio domain model and the orchestration
// engine that turns a (mode, prompt, settings, reference image) request into
// Gemini/Veo gateway calls.
package studio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/media"
)

// Mode is one of the four studio workflows.
type Mode string

const (
	ModeAnalyze  Mode = "ANALYZE"
	ModeGenerate Mode = "GENERATE"
	ModeEdit     Mode = "EDIT"
	ModeVideo    Mode = "VIDEO"
)

// Modes lists every workflow in display order.
var Modes = []Mode{ModeAnalyze, ModeGenerate, ModeEdit, ModeVideo}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeAnalyze, ModeGenerate, ModeEdit, ModeVideo:
		return true
	}
	return false
}

// ResultKind returns the result variant a successful execution of m produces.
func (m Mode) ResultKind() ResultKind {
	switch m {
	case ModeAnalyze:
		return KindText
	case ModeVideo:
		return KindVideo
	default:
		return KindImage
	}
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		names := make([]string, len(Modes))
		for i, v := range Modes {
			names[i] = string(v)
		}
		return "", fmt.Errorf("unknown mode %q (want one of %s)", s, strings.Join(names, ", "))
	}
	return m, nil
}

// AspectRatio is a width:height ratio requested for generated media.
type AspectRatio string

const (
	Ratio1x1  AspectRatio = "1:1"
	Ratio3x4  AspectRatio = "3:4"
	Ratio4x3  AspectRatio = "4:3"
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
	Ratio21x9 AspectRatio = "21:9"
	Ratio2x3  AspectRatio = "2:3"
	Ratio3x2  AspectRatio = "3:2"
)

// AspectRatios lists every selectable ratio.
var AspectRatios = []AspectRatio{Ratio1x1, Ratio3x4, Ratio4x3, Ratio9x16, Ratio16x9, Ratio21x9, Ratio2x3, Ratio3x2}

// Valid reports whether r is a selectable ratio.
func (r AspectRatio) Valid() bool {
	for _, v := range AspectRatios {
		if r == v {
			return true
		}
	}
	return false
}

// ParseAspectRatio validates a ratio string such as "16:9".
func ParseAspectRatio(s string) (AspectRatio, error) {
	r := AspectRatio(s)
	if !r.Valid() {
		return "", fmt.Errorf("unsupported aspect ratio %q", s)
	}
	return r, nil
}

// ImageSize is the output quality tier.
type ImageSize string

const (
	Size1K ImageSize = "1K"
	Size2K ImageSize = "2K"
	Size4K ImageSize = "4K"
)

// ImageSizes lists every quality tier.
var ImageSizes = []ImageSize{Size1K, Size2K, Size4K}

// Valid reports whether s is a known tier.
func (s ImageSize) Valid() bool {
	switch s {
	case Size1K, Size2K, Size4K:
		return true
	}
	return false
}

// Premium reports whether s is one of the premium tiers (2K, 4K).
func (s ImageSize) Premium() bool {
	return s == Size2K || s == Size4K
}

// ParseImageSize accepts "1k", "2K", ...
func ParseImageSize(s string) (ImageSize, error) {
	size := ImageSize(strings.ToUpper(strings.TrimSpace(s)))
	if !size.Valid() {
		return "", fmt.Errorf("unsupported image size %q (want 1K, 2K or 4K)", s)
	}
	return size, nil
}

// Session is the persisted "current session" document. A zero field means
// "not set": restoring merges only the fields that are set.
type Session struct {
	Mode          Mode
	UploadedImage media.DataURI
	Result        Result
	Prompt        string
	AspectRatio   AspectRatio
	ImageSize     ImageSize
}

// DefaultSession returns the state of a fresh install.
func DefaultSession() Session {
	return Session{
		Mode:        ModeAnalyze,
		AspectRatio: Ratio16x9,
		ImageSize:   Size1K,
	}
}

// Merge overlays the set fields of saved onto s.
func (s Session) Merge(saved Session) Session {
	if saved.Mode != "" {
		s.Mode = saved.Mode
	}
	if !saved.UploadedImage.IsZero() {
		s.UploadedImage = saved.UploadedImage
	}
	if saved.Result != nil {
		s.Result = saved.Result
	}
	if saved.Prompt != "" {
		s.Prompt = saved.Prompt
	}
	if saved.AspectRatio != "" {
		s.AspectRatio = saved.AspectRatio
	}
	if saved.ImageSize != "" {
		s.ImageSize = saved.ImageSize
	}
	return s
}

type sessionDocument struct {
	Mode          Mode            `json:"mode,omitempty"`
	UploadedImage media.DataURI   `json:"uploadedImage,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Prompt        string          `json:"prompt,omitempty"`
	AspectRatio   AspectRatio     `json:"aspectRatio,omitempty"`
	ImageSize     ImageSize       `json:"imageSize,omitempty"`
}

// MarshalJSON encodes the session document with the result as a tagged object.
func (s Session) MarshalJSON() ([]byte, error) {
	doc := sessionDocument{
		Mode:          s.Mode,
		UploadedImage: s.UploadedImage,
		Prompt:        s.Prompt,
		AspectRatio:   s.AspectRatio,
		ImageSize:     s.ImageSize,
	}
	if s.Result != nil {
		raw, err := MarshalResult(s.Result)
		if err != nil {
			return nil, err
		}
		doc.Result = raw
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a session document. Unknown enum values and an
// undecodable result are dropped so that a stale document cannot put the
// studio into an invalid state; the remaining fields are kept.
func (s *Session) UnmarshalJSON(data []byte) error {
	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = Session{
		UploadedImage: doc.UploadedImage,
		Prompt:        doc.Prompt,
	}
	if doc.Mode.Valid() {
		s.Mode = doc.Mode
	}
	if doc.AspectRatio.Valid() {
		s.AspectRatio = doc.AspectRatio
	}
	if doc.ImageSize.Valid() {
		s.ImageSize = doc.ImageSize
	}
	if len(doc.Result) > 0 && string(doc.Result) != "null" {
		r, err := UnmarshalResult(doc.Result)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable session result")
		} else {
			s.Result = r
		}
	}
	return nil
}
