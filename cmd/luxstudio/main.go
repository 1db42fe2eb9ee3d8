package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/cli"
	"github.com/fpang/luxstudio/internal/config"
	"github.com/fpang/luxstudio/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	verboseFlag bool
	outDirFlag  string
)

// app is initialized by the root command before any subcommand runs.
var app *cli.App

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "luxstudio",
	Short: "Luxury photo studio powered by Gemini and Veo",
	Long: `LuxStudio critiques, edits and generates luxury-grade photos and short
cinematic clips with Gemini image models and Veo.

The studio keeps one current session (mode, prompt, reference photo,
aspect ratio, quality and the last result) and restores it on every run.

Examples:
  luxstudio login
  luxstudio analyze --image portrait.jpg
  luxstudio generate --prompt "Evening gown on a Riviera terrace" --ratio 3:4 --size 2K
  luxstudio generate --image portrait.jpg --prompt "Editorial shoot in Paris"
  luxstudio video --prompt "Slow dolly along a yacht deck at dusk" --download
  luxstudio export --out ./shoot
  luxstudio mcp`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verboseFlag {
			level = "debug"
		}
		logging.InitWriter(os.Stderr, level)

		app, err = cli.InitApp(cmd.Context(), cfg, version)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close(context.Background())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outDirFlag, "out", "o", ".", "Directory for generated files")
}

func main() {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if app != nil {
			app.Close(context.Background())
		}
		log.Debug().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "Error:", cli.ErrorMessage(err))
		os.Exit(1)
	}
}
