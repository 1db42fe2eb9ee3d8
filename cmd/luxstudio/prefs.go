package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/prefs"
)

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or change the color theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(app.Session.View().Preferences.Theme)
			return nil
		}
		if args[0] == "toggle" {
			t, err := app.Session.ToggleTheme()
			if err != nil {
				return err
			}
			fmt.Println(t)
			return nil
		}
		t, err := prefs.ParseTheme(args[0])
		if err != nil {
			return err
		}
		if err := app.Session.SetTheme(t); err != nil {
			return err
		}
		fmt.Println(t)
		return nil
	},
}

var sidebarCmd = &cobra.Command{
	Use:       "sidebar [collapsed|expanded]",
	Short:     "Show or change the sidebar state",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"collapsed", "expanded"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(sidebarLabel(app.Session.View().Preferences.SidebarCollapsed))
			return nil
		}
		var collapsed bool
		switch args[0] {
		case "collapsed":
			collapsed = true
		case "expanded":
		default:
			return fmt.Errorf("unknown sidebar state %q (want collapsed or expanded)", args[0])
		}
		if err := app.Session.SetSidebarCollapsed(collapsed); err != nil {
			return err
		}
		fmt.Println(sidebarLabel(collapsed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd, sidebarCmd)
}
