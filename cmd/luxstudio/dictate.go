package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/cli"
	"github.com/fpang/luxstudio/internal/media"
)

var audioFlag string

var dictateCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Transcribe a recording and append it to the session prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := audioFlag
		if pickFlag || path == "" {
			picked, err := cli.PickAudio()
			if err != nil {
				return err
			}
			path = picked
		}
		resolved, err := cli.ResolveFile(path)
		if err != nil {
			return err
		}
		audio, err := media.LoadAudioFile(resolved)
		if err != nil {
			return err
		}
		if _, err := app.Session.Dictate(cmd.Context(), audio); err != nil {
			return err
		}
		fmt.Println(app.Session.Session().Prompt)
		return nil
	},
}

func init() {
	dictateCmd.Flags().StringVarP(&audioFlag, "audio", "a", "", "Recording to transcribe (opens a file dialog when omitted)")
	dictateCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose the recording in a file dialog")
	rootCmd.AddCommand(dictateCmd)
}
