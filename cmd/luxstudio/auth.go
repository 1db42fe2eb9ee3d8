package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/auth"
	"github.com/fpang/luxstudio/internal/chat"
	"github.com/fpang/luxstudio/internal/cli"
)

var (
	keyFlag      string
	validateFlag bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a Gemini API key",
	Long: `Saves the Gemini API key used by every studio action. The key must start
with "AIza". Without --key the key is read from the terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := keyFlag
		if key == "" {
			key = cli.PromptLine(os.Stdin, os.Stderr, "Gemini API key: ")
		}
		if err := auth.CheckFormat(key); err != nil {
			return err
		}

		if validateFlag {
			client, err := chat.NewClient(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := auth.ValidateAPIKey(cmd.Context(), client, chat.ModelGemini3FlashPreview, app.Metrics); err != nil {
				return err
			}
		}

		if err := app.Session.Login(key); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved API key and clear the current work",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Session.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		if src := app.Keys.ExternalSource(); src != "" {
			fmt.Fprintf(os.Stderr, "Warning: %s still supplies an API key; the next command will use it.\n", src)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&keyFlag, "key", "k", "", "API key (prompted when omitted)")
	loginCmd.Flags().BoolVar(&validateFlag, "validate", true, "Check the key with a test request before saving")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
