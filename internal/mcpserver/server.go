// Package mcpserver exposes the studio workflows as Model Context Protocol
// tools over stdio. Images travel as file paths: inputs are read from disk
// and generated images are written to the output directory.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/bundle"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/session"
	"github.com/fpang/luxstudio/internal/studio"
)

// KeySource supplies the API key for each tool call.
type KeySource interface {
	GetAPIKey(ctx context.Context) (string, error)
}

// Server holds the dependencies of the tool handlers.
type Server struct {
	engine  session.Engine
	keys    KeySource
	outDir  string
	version string
}

// New creates a tool server writing generated files under outDir.
func New(engine session.Engine, keys KeySource, outDir, version string) *Server {
	return &Server{engine: engine, keys: keys, outDir: outDir, version: version}
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "luxstudio", Version: s.version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze",
		Description: "Critique a photo like a luxury image consultant and suggest improvements.",
	}, s.Analyze)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "edit",
		Description: "Edit a photo following an instruction while preserving facial features.",
	}, s.Edit)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate",
		Description: "Generate a photoshoot of up to three angles, optionally from a reference photo.",
	}, s.Generate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video",
		Description: "Generate a short cinematic clip and return its download location.",
	}, s.Video)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcribe",
		Description: "Transcribe a dictated audio file.",
	}, s.Transcribe)
	return server
}

// Run serves the tools on stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Str("out_dir", s.outDir).Msg("Starting MCP server on stdio")
	return s.MCP().Run(ctx, &mcp.StdioTransport{})
}

type AnalyzeInput struct {
	ImagePath string `json:"image_path" jsonschema:"path of the photo to analyze"`
	Prompt    string `json:"prompt,omitempty" jsonschema:"optional question or focus for the critique"`
}

type AnalyzeOutput struct {
	Report string `json:"report"`
}

type EditInput struct {
	ImagePath   string `json:"image_path" jsonschema:"path of the photo to edit"`
	Instruction string `json:"instruction" jsonschema:"the edit to apply"`
}

type GenerateInput struct {
	Prompt        string `json:"prompt" jsonschema:"description of the photo to create"`
	AspectRatio   string `json:"aspect_ratio,omitempty" jsonschema:"one of 1:1, 3:4, 4:3, 9:16, 16:9, 21:9, 2:3, 3:2 (default 16:9)"`
	ImageSize     string `json:"image_size,omitempty" jsonschema:"1K, 2K or 4K (default 1K)"`
	ReferencePath string `json:"reference_path,omitempty" jsonschema:"optional photo whose subject must be preserved"`
}

type ImagesOutput struct {
	Files []string `json:"files"`
}

type VideoInput struct {
	Prompt      string `json:"prompt" jsonschema:"description of the clip"`
	AspectRatio string `json:"aspect_ratio,omitempty" jsonschema:"9:16 or 3:4 give a portrait clip, anything else landscape"`
	Download    bool   `json:"download,omitempty" jsonschema:"also download the clip into the output directory"`
}

type VideoOutput struct {
	Location string `json:"location"`
	File     string `json:"file,omitempty"`
}

type TranscribeInput struct {
	AudioPath string `json:"audio_path" jsonschema:"path of the recording"`
}

type TranscribeOutput struct {
	Text string `json:"text"`
}

func (s *Server) Analyze(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	key, img, err := s.keyAndImage(ctx, in.ImagePath)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}
	report, err := s.engine.Analyze(ctx, key, img, in.Prompt)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}
	return nil, AnalyzeOutput{Report: report}, nil
}

func (s *Server) Edit(ctx context.Context, _ *mcp.CallToolRequest, in EditInput) (*mcp.CallToolResult, ImagesOutput, error) {
	key, img, err := s.keyAndImage(ctx, in.ImagePath)
	if err != nil {
		return nil, ImagesOutput{}, err
	}
	images, err := s.engine.Edit(ctx, key, img, in.Instruction)
	if err != nil {
		return nil, ImagesOutput{}, err
	}
	files, err := s.writeImages("edit", images)
	return nil, ImagesOutput{Files: files}, err
}

func (s *Server) Generate(ctx context.Context, _ *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, ImagesOutput, error) {
	key, err := s.keys.GetAPIKey(ctx)
	if err != nil {
		return nil, ImagesOutput{}, err
	}
	ratio := studio.Ratio16x9
	if in.AspectRatio != "" {
		if ratio, err = studio.ParseAspectRatio(in.AspectRatio); err != nil {
			return nil, ImagesOutput{}, err
		}
	}
	size := studio.Size1K
	if in.ImageSize != "" {
		if size, err = studio.ParseImageSize(in.ImageSize); err != nil {
			return nil, ImagesOutput{}, err
		}
	}
	var ref media.DataURI
	if in.ReferencePath != "" {
		if ref, err = media.LoadImageFile(in.ReferencePath, media.DefaultMaxReferenceDimension); err != nil {
			return nil, ImagesOutput{}, err
		}
	}

	images, err := s.engine.Generate(ctx, key, in.Prompt, ratio, size, ref)
	if err != nil {
		return nil, ImagesOutput{}, err
	}
	files, err := s.writeImages("generate", images)
	return nil, ImagesOutput{Files: files}, err
}

func (s *Server) Video(ctx context.Context, _ *mcp.CallToolRequest, in VideoInput) (*mcp.CallToolResult, VideoOutput, error) {
	key, err := s.keys.GetAPIKey(ctx)
	if err != nil {
		return nil, VideoOutput{}, err
	}
	ratio := studio.Ratio16x9
	if in.AspectRatio != "" {
		if ratio, err = studio.ParseAspectRatio(in.AspectRatio); err != nil {
			return nil, VideoOutput{}, err
		}
	}
	location, err := s.engine.GenerateVideo(ctx, key, in.Prompt, ratio)
	if err != nil {
		return nil, VideoOutput{}, err
	}
	out := VideoOutput{Location: location}
	if in.Download {
		dst := filepath.Join(s.outDir, bundle.VideoFileName)
		if _, err := bundle.DownloadVideo(ctx, nil, location, dst); err != nil {
			return nil, out, err
		}
		out.File = dst
	}
	return nil, out, nil
}

func (s *Server) Transcribe(ctx context.Context, _ *mcp.CallToolRequest, in TranscribeInput) (*mcp.CallToolResult, TranscribeOutput, error) {
	key, err := s.keys.GetAPIKey(ctx)
	if err != nil {
		return nil, TranscribeOutput{}, err
	}
	audio, err := media.LoadAudioFile(in.AudioPath)
	if err != nil {
		return nil, TranscribeOutput{}, err
	}
	text, err := s.engine.Transcribe(ctx, key, audio)
	if err != nil {
		return nil, TranscribeOutput{}, err
	}
	return nil, TranscribeOutput{Text: text}, nil
}

func (s *Server) keyAndImage(ctx context.Context, path string) (string, media.DataURI, error) {
	key, err := s.keys.GetAPIKey(ctx)
	if err != nil {
		return "", "", err
	}
	if path == "" {
		return "", "", studio.ErrMissingImage
	}
	img, err := media.LoadImageFile(path, media.DefaultMaxReferenceDimension)
	if err != nil {
		return "", "", err
	}
	return key, img, nil
}

// writeImages saves images as <prefix>_<n>.<ext> under the output directory.
func (s *Server) writeImages(prefix string, images []media.DataURI) ([]string, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files := make([]string, 0, len(images))
	for i, img := range images {
		name := filepath.Base(bundle.EntryName(i, img))
		path := filepath.Join(s.outDir, fmt.Sprintf("%s_%s", prefix, name))
		if err := media.WriteFile(path, img); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
