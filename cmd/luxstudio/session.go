package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/bundle"
	"github.com/fpang/luxstudio/internal/cli"
	"github.com/fpang/luxstudio/internal/studio"
)

var (
	zstdFlag   bool
	uploadFlag bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show or reset the current session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view := app.Session.View()
		s := view.Session
		health, storeErr := app.Store.Health()

		fmt.Println("============================================")
		fmt.Println("LuxStudio Session")
		fmt.Println("============================================")
		fmt.Printf("Mode:         %s\n", s.Mode)
		fmt.Printf("Aspect ratio: %s\n", s.AspectRatio)
		fmt.Printf("Quality:      %s\n", s.ImageSize)
		if s.UploadedImage.IsZero() {
			fmt.Println("Reference:    none")
		} else {
			fmt.Printf("Reference:    %s\n", s.UploadedImage.MIMEType())
		}
		if s.Result == nil {
			fmt.Println("Result:       none")
		} else {
			fmt.Printf("Result:       %s\n", describeResult(s.Result))
		}
		fmt.Printf("Theme:        %s\n", view.Preferences.Theme)
		fmt.Printf("Sidebar:      %s\n", sidebarLabel(view.Preferences.SidebarCollapsed))
		fmt.Printf("Store:        %s (%s)\n", app.Config.StoreBackend, health)
		if storeErr != nil {
			fmt.Printf("Store error:  %v\n", storeErr)
		}
		fmt.Println("--------------------------------------------")
		if s.Prompt != "" {
			fmt.Println(s.Prompt)
		}
		return nil
	},
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session, keeping mode and settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Session.NewSession()
		fmt.Println("Started a new session.")
		return nil
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode [ANALYZE|GENERATE|EDIT|VIDEO]",
	Short: "Show or switch the session mode without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(app.Session.Session().Mode)
			return nil
		}
		m, err := studio.ParseMode(args[0])
		if err != nil {
			return err
		}
		app.Session.SetMode(m)
		fmt.Println(m)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the last result to the output directory",
	Long: `Saves the last result: images are bundled into luxstudio_photoshoot.zip,
a video is downloaded as lux_cinema.mp4 and a report is written as
luxstudio_report.txt. With --upload and LUXSTUDIO_S3_BUCKET set, the file
is also uploaded to S3.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			path        string
			contentType string
		)
		switch r := app.Session.Session().Result.(type) {
		case nil:
			return errors.New("nothing to export: the session has no result")
		case studio.ImagesResult:
			path = filepath.Join(outDirFlag, bundle.PhotoshootZipName)
			contentType = "application/zip"
			n, err := bundle.WriteImagesZipFile(path, r.Images, bundle.ZipOptions{Zstd: zstdFlag})
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s (%s)\n", path, cli.FormatBytes(n))
		case studio.VideoResult:
			path = filepath.Join(outDirFlag, bundle.VideoFileName)
			contentType = "video/mp4"
			n, err := bundle.DownloadVideo(cmd.Context(), nil, r.URI, path)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s (%s)\n", path, cli.FormatBytes(n))
		case studio.TextResult:
			path = filepath.Join(outDirFlag, "luxstudio_report.txt")
			contentType = "text/plain; charset=utf-8"
			if err := writeText(path, r.Text); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
		}

		if !uploadFlag {
			return nil
		}
		if app.S3 == nil {
			return errors.New("upload needs LUXSTUDIO_S3_BUCKET")
		}
		prefix := "exports/" + time.Now().UTC().Format("20060102T150405Z")
		key, err := bundle.UploadFile(cmd.Context(), app.S3, app.Config.S3Bucket, prefix, path, contentType)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded s3://%s/%s\n", app.Config.S3Bucket, key)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&zstdFlag, "zstd", false, "Compress the photoshoot ZIP with Zstandard")
	exportCmd.Flags().BoolVar(&uploadFlag, "upload", false, "Upload the exported file to S3")
	sessionCmd.AddCommand(sessionShowCmd, sessionNewCmd)
	for _, m := range studio.Modes {
		modeCmd.ValidArgs = append(modeCmd.ValidArgs, string(m))
	}
	rootCmd.AddCommand(sessionCmd, modeCmd, exportCmd)
}

func describeResult(r studio.Result) string {
	switch v := r.(type) {
	case studio.TextResult:
		return fmt.Sprintf("report (%d chars)", len(v.Text))
	case studio.ImagesResult:
		return fmt.Sprintf("%d image(s)", len(v.Images))
	case studio.VideoResult:
		return "video"
	default:
		return string(r.Kind())
	}
}

func sidebarLabel(collapsed bool) string {
	if collapsed {
		return "collapsed"
	}
	return "expanded"
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(text+"\n"), 0o644)
}
