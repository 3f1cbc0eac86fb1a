package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/audit"
	"github.com/newtron-network/lldpsync/pkg/cli"
	"github.com/newtron-network/lldpsync/pkg/topology"
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Show LLDP neighbors and the descriptions they imply",
	Long: `Show LLDP neighbors and the descriptions they imply.

Reads the switch's LLDP table and prints, per port, the description a run
would set. Nothing is changed.

Examples:
  lldpsync -s access-1 neighbors
  lldpsync -s access-1 neighbors --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switches, err := selectSwitches(false)
		if err != nil {
			return err
		}
		sw := &switches[0]

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx, sw)
		if err != nil {
			return err
		}
		defer sess.Close()

		event := audit.NewEvent(currentUser, sw.Name, audit.OperationNeighbors).WithExecuteMode(false)
		defer logAudit(event)

		if err := sess.Adapter.SetTerminalLength(ctx); err != nil {
			event.WithError(err)
			return err
		}
		dump, err := sess.Adapter.NeighborDump(ctx)
		if err != nil {
			event.WithError(err)
			return err
		}
		event.WithSuccess()

		res := sess.Adapter.ParseNeighborDump(dump)
		if res.Empty() {
			fmt.Println("No neighbor information retrieved")
			return nil
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(res)
		}
		printNeighbors(res)
		return nil
	},
}

func printNeighbors(res topology.Result) {
	if len(res.Targets) == 0 {
		fmt.Println("No usable LLDP neighbors")
	}
	t := cli.NewTable("PORT", "NEIGHBORS", "DESCRIPTION")
	for _, tgt := range res.Targets {
		t.Row(tgt.Port, strconv.Itoa(tgt.NeighborCount), tgt.DesiredDescription)
	}
	t.Flush()

	if len(res.Skipped) > 0 {
		fmt.Println()
		s := cli.NewTable("SKIPPED PORT", "NEIGHBOR")
		for _, rec := range res.Skipped {
			s.Row(rec.Port, cli.Dim(rec.NeighborName))
		}
		s.Flush()
	}
}
