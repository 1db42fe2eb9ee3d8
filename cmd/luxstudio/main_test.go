package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/studio"
)

func TestWriteImages(t *testing.T) {
	outDirFlag = filepath.Join(t.TempDir(), "shoot")
	t.Cleanup(func() { outDirFlag = "." })

	files, err := writeImages([]media.DataURI{
		media.NewDataURI("image/png", []byte("one")),
		media.NewDataURI("image/jpeg", []byte("two")),
	})
	if err != nil {
		t.Fatalf("writeImages: %v", err)
	}
	want := []string{"lux_studio_angle_1.png", "lux_studio_angle_2.jpg"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i, name := range want {
		if filepath.Base(files[i]) != name {
			t.Errorf("file %d = %s, want %s", i, files[i], name)
		}
	}
	data, err := os.ReadFile(files[1])
	if err != nil || string(data) != "two" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func TestDescribeResult(t *testing.T) {
	tests := []struct {
		r    studio.Result
		want string
	}{
		{studio.TextResult{Text: "abc"}, "report (3 chars)"},
		{studio.ImagesResult{Images: make([]media.DataURI, 3)}, "3 image(s)"},
		{studio.VideoResult{URI: "u"}, "video"},
	}
	for _, tt := range tests {
		if got := describeResult(tt.r); got != tt.want {
			t.Errorf("describeResult(%T) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"login", "logout", "analyze", "edit", "generate", "video", "dictate", "session", "mode", "export", "theme", "sidebar", "mcp"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestJoinValues(t *testing.T) {
	if got := joinValues(studio.ImageSizes); got != "1K, 2K, 4K" {
		t.Errorf("joinValues = %q", got)
	}
}
