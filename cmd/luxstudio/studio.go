package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/bundle"
	"github.com/fpang/luxstudio/internal/cli"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/studio"
)

// Flags shared by the studio action commands.
var (
	imageFlag      string
	pickFlag       bool
	clearImageFlag bool
	promptFlag     string
	ratioFlag      string
	sizeFlag       string
	downloadFlag   bool
)

func newActionCmd(mode studio.Mode, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyActionFlags(cmd, mode); err != nil {
				return err
			}
			start := time.Now()
			result, err := app.Session.Execute(cmd.Context())
			if err != nil {
				return err
			}
			log.Debug().Dur("duration", time.Since(start)).Msg("Action finished")
			return printResult(cmd, result, time.Since(start))
		},
	}
}

var analyzeCmd = newActionCmd(studio.ModeAnalyze, "analyze", "Critique a photo as a luxury image consultant",
	`Sends the reference photo to the analysis model and prints a consultant report
covering lighting, styling, composition and concrete improvements. The report
also becomes the session prompt so that it can drive an edit or a new shoot.`)

var editCmd = newActionCmd(studio.ModeEdit, "edit", "Edit a photo while preserving the subject's face",
	`Applies the prompt as an edit instruction to the reference photo.`)

var generateCmd = newActionCmd(studio.ModeGenerate, "generate", "Generate a photoshoot",
	`Generates images from the prompt. 1K output with a reference photo produces a
three-angle photoshoot of the same person; 2K and 4K produce a single premium
image from the prompt alone.`)

var videoCmd = newActionCmd(studio.ModeVideo, "video", "Generate a short cinematic clip",
	`Generates a 1080p clip with Veo. 9:16 and 3:4 produce a portrait clip, every
other ratio a landscape one. Needs a key from a project with billing enabled.`)

func init() {
	for _, cmd := range []*cobra.Command{analyzeCmd, editCmd, generateCmd, videoCmd} {
		cmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Prompt text (keeps the session prompt when omitted)")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{analyzeCmd, editCmd, generateCmd} {
		cmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Reference photo (keeps the session photo when omitted)")
		cmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose the reference photo in a file dialog")
	}
	generateCmd.Flags().BoolVar(&clearImageFlag, "no-reference", false, "Drop the session reference photo")
	for _, cmd := range []*cobra.Command{generateCmd, videoCmd} {
		cmd.Flags().StringVarP(&ratioFlag, "ratio", "r", "", "Aspect ratio: "+joinValues(studio.AspectRatios))
	}
	generateCmd.Flags().StringVarP(&sizeFlag, "size", "s", "", "Quality: "+joinValues(studio.ImageSizes))
	videoCmd.Flags().BoolVar(&downloadFlag, "download", false, "Download the clip into the output directory")
}

// applyActionFlags copies the command line into the session before execution.
func applyActionFlags(cmd *cobra.Command, mode studio.Mode) error {
	app.Session.SetMode(mode)

	path := imageFlag
	if pickFlag {
		picked, err := cli.PickImage()
		if err != nil {
			return err
		}
		path = picked
	}
	if path != "" {
		resolved, err := cli.ResolveFile(path)
		if err != nil {
			return err
		}
		img, err := media.LoadImageFile(resolved, media.DefaultMaxReferenceDimension)
		if err != nil {
			return err
		}
		app.Session.SetUploadedImage(img)
	} else if clearImageFlag {
		app.Session.SetUploadedImage("")
	}

	if cmd.Flags().Changed("prompt") {
		app.Session.SetPrompt(promptFlag)
	}
	if ratioFlag != "" {
		ratio, err := studio.ParseAspectRatio(ratioFlag)
		if err != nil {
			return err
		}
		app.Session.SetAspectRatio(ratio)
	}
	if sizeFlag != "" {
		size, err := studio.ParseImageSize(sizeFlag)
		if err != nil {
			return err
		}
		app.Session.SetImageSize(size)
	}
	return nil
}

func printResult(cmd *cobra.Command, result studio.Result, elapsed time.Duration) error {
	switch r := result.(type) {
	case studio.TextResult:
		fmt.Println(r.Text)
	case studio.ImagesResult:
		files, err := writeImages(r.Images)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d image(s) in %s:\n", len(files), cli.FormatDurationShort(elapsed))
		for _, f := range files {
			fmt.Printf("   %s\n", f)
		}
	case studio.VideoResult:
		fmt.Printf("Video ready in %s: %s\n", cli.FormatDurationShort(elapsed), r.URI)
		if downloadFlag {
			dst := filepath.Join(outDirFlag, bundle.VideoFileName)
			n, err := bundle.DownloadVideo(cmd.Context(), nil, r.URI, dst)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s (%s)\n", dst, cli.FormatBytes(n))
		}
	default:
		return errors.New("unexpected result")
	}
	return nil
}

// writeImages saves images into the output directory as lux_studio_angle_<n>.
func writeImages(images []media.DataURI) ([]string, error) {
	if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(outDirFlag, filepath.Base(bundle.EntryName(i, img)))
		if err := media.WriteFile(path, img); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func joinValues[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
