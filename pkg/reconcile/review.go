package reconcile

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/newtron-network/lldpsync/pkg/util"
)

// ReviewFunc is called with the planned report before anything is sent. A
// non-nil error aborts the run with nothing applied.
type ReviewFunc func(ctx context.Context, r *Report) error

// Countdown returns a ReviewFunc that prints the plan to w and counts down
// seconds before letting the run proceed. Cancelling ctx during the
// countdown aborts with ErrAborted.
func Countdown(clock clockwork.Clock, seconds int, w io.Writer) ReviewFunc {
	return func(ctx context.Context, r *Report) error {
		fmt.Fprintln(w, "\nCommands to be applied:")
		for _, c := range r.Plan.Commands {
			fmt.Fprintln(w, c)
		}

		fmt.Fprintln(w, "\nReviewing changes before application...")
		for i := seconds; i > 0; i-- {
			fmt.Fprintf(w, "\rProceeding with changes in %d seconds... Press Ctrl+C to abort", i)
			select {
			case <-ctx.Done():
				fmt.Fprintln(w)
				return fmt.Errorf("%w: %v", util.ErrAborted, ctx.Err())
			case <-clock.After(time.Second):
			}
		}
		fmt.Fprintln(w, "\nApplying changes...")
		return nil
	}
}
