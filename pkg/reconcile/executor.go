package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/lldpsync/pkg/switchadapter"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// DefaultCommandSettle is the settle wait for configuration commands.
const DefaultCommandSettle = time.Second

var (
	persistRe  = regexp.MustCompile(`(?i)^\s*(wr|write(\s+mem(ory)?)?|copy\s+run(ning-config)?\s+start(up-config)?|save(\s+config)?)\s*$`)
	cliErrorRe = regexp.MustCompile(`(?m)^\s*% ?(Invalid|Incomplete|Ambiguous|Error).*$`)
)

// IsPersistCommand reports whether cmd would write the running
// configuration to startup storage.
func IsPersistCommand(cmd string) bool {
	return persistRe.MatchString(cmd)
}

// Executor sends a CommandPlan through a Commander. Execution is not
// transactional: a failure part way leaves earlier commands applied.
type Executor struct {
	cmd    switchadapter.Commander
	settle time.Duration
	log    *logrus.Entry
}

// NewExecutor creates an executor. A zero settle selects DefaultCommandSettle.
func NewExecutor(cmd switchadapter.Commander, settle time.Duration, log *logrus.Entry) *Executor {
	if settle == 0 {
		settle = DefaultCommandSettle
	}
	if log == nil {
		log = logrus.NewEntry(util.Logger)
	}
	return &Executor{cmd: cmd, settle: settle, log: log}
}

// ApplyResult describes how far a plan got.
type ApplyResult struct {
	Applied  int      `json:"applied"`
	Warnings []string `json:"warnings,omitempty"`
}

// Apply checks the whole plan for persist commands, then sends each command
// in order. It never writes to startup configuration.
func (x *Executor) Apply(ctx context.Context, plan CommandPlan) (ApplyResult, error) {
	var res ApplyResult
	for _, c := range plan.Commands {
		if IsPersistCommand(c) {
			return res, fmt.Errorf("%w: %q", util.ErrPersistForbidden, c)
		}
	}

	for _, c := range plan.Commands {
		out, err := x.cmd.Execute(ctx, c, x.settle)
		if err != nil {
			return res, fmt.Errorf("applying %q after %d of %d commands: %w", c, res.Applied, len(plan.Commands), err)
		}
		res.Applied++
		if m := cliErrorRe.FindString(out); m != "" {
			w := fmt.Sprintf("%s: %s", c, m)
			res.Warnings = append(res.Warnings, w)
			x.log.Warn(w)
		}
	}
	return res, nil
}
