package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickCanceled is returned when the user closes a file dialog.
var ErrPickCanceled = errors.New("file selection canceled")

// PromptLine prints label to out and reads one trimmed line from in.
func PromptLine(in io.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}
	return strings.TrimSpace(input)
}

// PickImage opens the native file dialog filtered to reference images.
func PickImage() (string, error) {
	return pick("Select a photo", "Images", []string{
		"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.heic", "*.heif",
	})
}

// PickAudio opens the native file dialog filtered to dictation recordings.
func PickAudio() (string, error) {
	return pick("Select a recording", "Audio", []string{
		"*.wav", "*.mp3", "*.ogg", "*.webm", "*.m4a", "*.flac",
	})
}

func pick(title, filterName string, patterns []string) (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{{Name: filterName, Patterns: patterns}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickCanceled
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}
	return selected, nil
}
