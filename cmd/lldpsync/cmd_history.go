package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/cli"
	"github.com/newtron-network/lldpsync/pkg/metrics"
	"github.com/newtron-network/lldpsync/pkg/reconcile"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs stored in Redis",
	Long: `Show recent runs stored in Redis.

Requires a redis section in the inventory.

Examples:
  lldpsync -s access-1 history
  lldpsync -s access-1 history --limit 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switches, err := selectSwitches(false)
		if err != nil {
			return err
		}
		sw := switches[0].Name

		hist := openStore(cmd.Context())
		if hist == nil {
			return errors.New("history requires a reachable redis (inventory redis.addr)")
		}
		defer hist.Close()

		reports, err := hist.History(cmd.Context(), sw, historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(reports)
		}
		if len(reports) == 0 {
			fmt.Printf("No runs recorded for %s\n", sw)
			return nil
		}

		t := cli.NewTable("STARTED", "DURATION", "RESULT", "UPDATED", "ERRORS", "APPLIED")
		for _, rep := range reports {
			var runErr error
			if rep.Error != "" {
				runErr = errors.New(rep.Error)
			}
			errCount := rep.Count(reconcile.StatusValidationError) + rep.Count(reconcile.StatusVerificationFailed)
			t.Row(
				rep.StartedAt.Local().Format("2006-01-02 15:04:05"),
				rep.Duration().Round(time.Second).String(),
				metrics.Result(rep, runErr),
				fmt.Sprintf("%d", rep.Count(reconcile.StatusUpdated)),
				fmt.Sprintf("%d", errCount),
				fmt.Sprintf("%d", rep.AppliedCommands),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show (0 for all kept)")
}
