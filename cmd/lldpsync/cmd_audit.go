package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/audit"
	"github.com/newtron-network/lldpsync/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log",
	Long: `View the audit log of runs.

Every run is logged with the user, switch, changes, and whether it was
applied, aborted or failed.

Examples:
  lldpsync audit list -s access-1
  lldpsync audit list --last 24h
  lldpsync audit list --port Gi1/0/1 --failures`,
}

var (
	auditUser     string
	auditPort     string
	auditLast     string
	auditLimit    int
	auditFailures bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Switch:      switchName,
			User:        auditUser,
			Port:        auditPort,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "SWITCH", "OPERATION", "MODE", "CHANGES", "STATUS")
		for _, e := range events {
			t.Row(
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.User,
				e.Switch,
				e.Operation,
				eventMode(e),
				fmt.Sprintf("%d", len(e.Changes)),
				eventStatus(e),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditPort, "port", "", "Filter by port")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Only events within this duration (e.g. 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Only failed runs")
	auditCmd.AddCommand(auditListCmd)
}

func eventMode(e *audit.Event) string {
	if e.ExecuteMode {
		return "execute"
	}
	return "dry-run"
}

func eventStatus(e *audit.Event) string {
	switch {
	case e.Aborted:
		return cli.Yellow("aborted")
	case e.Success:
		return cli.Green("ok")
	}
	return cli.Red("FAILED")
}
