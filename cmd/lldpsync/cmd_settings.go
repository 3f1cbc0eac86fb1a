package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/cli"
	"github.com/newtron-network/lldpsync/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.lldpsync/settings.json.

Settings provide defaults for global flags:
  - inventory:   Used when --inventory is not specified
  - username:    SSH login when neither --username nor LLDPSYNC_USERNAME is set
  - audit_log:   Overrides the inventory's audit.path
  - last_switch: Used when -s is not specified

Examples:
  lldpsync settings show
  lldpsync settings set inventory /srv/lldpsync/inventory.yaml
  lldpsync settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		for _, key := range settings.Keys() {
			value, _ := userSettings.Get(key)
			if value == "" {
				value = "(not set)"
			}
			t.Row(key, value)
		}
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !userSettings.Set(args[0], args[1]) {
			return fmt.Errorf("unknown setting: %s (valid: %s)", args[0], strings.Join(settings.Keys(), ", "))
		}
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, ok := userSettings.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown setting: %s (valid: %s)", args[0], strings.Join(settings.Keys(), ", "))
		}
		fmt.Println(value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		userSettings.Clear()
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsGetCmd, settingsClearCmd)
}
