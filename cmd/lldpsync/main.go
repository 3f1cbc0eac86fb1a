// lldpsync - LLDP-driven interface description reconciler
//
// Reads LLDP neighbors from a switch over SSH and rewrites each port's
// description to name the neighbor it faces:
//   - Dry-run by default (preview changes, require -x to execute)
//   - Review countdown before applying; Ctrl+C aborts with nothing sent
//   - Never writes the running configuration to startup-config
//   - Audit log, Redis report history and textfile metrics when configured
//
// Examples:
//
//	lldpsync -s access-1 neighbors              # Parsed LLDP neighbors
//	lldpsync -s access-1 run                    # Preview description changes
//	lldpsync -s access-1 run -x                 # Apply after a 10s review
//	lldpsync run --all -x --cron                # Every switch, unattended
//	lldpsync -s access-1 history                # Recent runs from Redis
package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/audit"
	"github.com/newtron-network/lldpsync/pkg/inventory"
	"github.com/newtron-network/lldpsync/pkg/settings"
	"github.com/newtron-network/lldpsync/pkg/util"
	"github.com/newtron-network/lldpsync/pkg/version"
)

var (
	// Global context flags
	switchName    string // -s, --switch
	inventoryPath string // -I, --inventory
	username      string // -u, --username

	// Global option flags
	verbose    bool
	logJSON    bool
	jsonOutput bool
	envFile    string

	// Global state
	userSettings *settings.Settings
	inv          *inventory.Inventory
	currentUser  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:               "lldpsync",
	Short:             "LLDP-driven interface description reconciler",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `lldpsync sets each switch port's description to the LLDP neighbor it faces.

Runs preview changes by default; use -x to execute. Changes are applied to
the running configuration only and are never saved to startup-config.

  lldpsync -s <switch> run [-x] [--cron]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		if u, err := user.Current(); err == nil {
			currentUser = u.Username
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if isSettingsOrMeta(cmd) {
			return nil
		}

		if err := loadEnv(envFile); err != nil {
			return err
		}

		if inventoryPath == "" {
			inventoryPath = userSettings.GetInventory()
		}
		inv, err = inventory.Load(inventoryPath)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}
		if switchName == "" {
			switchName = userSettings.LastSwitch
		}

		initAudit()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&switchName, "switch", "s", "", "Switch name from the inventory (object selector)")
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "I", "", "Inventory file (default from settings or "+settings.DefaultInventoryPath+")")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "SSH username (overrides env, settings and inventory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with LLDPSYNC_USERNAME/LLDPSYNC_PASSWORD")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")

	for _, cmd := range []*cobra.Command{runCmd, showPlanCmd, neighborsCmd, historyCmd, auditCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "switch", Title: "Switch Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{runCmd, showPlanCmd, neighborsCmd} {
		cmd.GroupID = "switch"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{historyCmd, auditCmd, settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion("lldpsync")
	},
}

func printVersion(tool string) {
	if version.Version == "dev" {
		fmt.Printf("%s dev build (no version ldflags)\n", tool)
	} else {
		fmt.Printf("%s %s (%s)\n", tool, version.Version, version.GitCommit)
	}
}

// isSettingsOrMeta reports whether cmd runs without an inventory.
func isSettingsOrMeta(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

// loadEnv reads path into the environment without overriding variables
// already set. A missing default file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func initAudit() {
	path := inv.Audit.Path
	if userSettings.AuditLog != "" {
		path = userSettings.AuditLog
	}
	if path == "" {
		return
	}
	logger, err := audit.NewFileLogger(path, audit.RotationConfig{
		MaxSize:    inv.Audit.MaxSize,
		MaxBackups: inv.Audit.MaxBackups,
	})
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
		return
	}
	audit.SetDefaultLogger(logger)
}

// selectSwitches returns the switch named by -s, or every switch when all is set.
func selectSwitches(all bool) ([]inventory.Switch, error) {
	if all {
		return inv.Switches, nil
	}
	if switchName == "" {
		return nil, fmt.Errorf("switch required: use -s <switch> or --all (known: %v)", inv.Names())
	}
	sw, err := inv.Switch(switchName)
	if err != nil {
		return nil, err
	}
	return []inventory.Switch{*sw}, nil
}
