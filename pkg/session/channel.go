package session

import (
	"bytes"
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/lldpsync/pkg/util"
)

const (
	// DefaultPollQuantum is the sleep between empty reads while waiting for output.
	DefaultPollQuantum = 100 * time.Millisecond

	// DefaultPollCeiling bounds the total time spent sleeping in the poll loop.
	DefaultPollCeiling = 3 * time.Second

	// DefaultLineTerminator ends every command sent to the shell.
	DefaultLineTerminator = "\n"

	maxDrainReads = 4096
)

// Channel wraps a Transport with buffered read-until-quiescent semantics.
// It supports one outstanding command at a time and is not safe for
// concurrent use.
type Channel struct {
	transport   Transport
	clock       clockwork.Clock
	terminator  string
	pollQuantum time.Duration
	pollCeiling time.Duration
	log         *logrus.Entry
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock sets the clock used for settle waits and poll sleeps.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// WithLineTerminator overrides the terminator appended to each command.
func WithLineTerminator(term string) Option {
	return func(c *Channel) { c.terminator = term }
}

// WithPollQuantum overrides the sleep between empty reads.
func WithPollQuantum(d time.Duration) Option {
	return func(c *Channel) { c.pollQuantum = d }
}

// WithPollCeiling overrides the total poll sleep budget per command.
func WithPollCeiling(d time.Duration) Option {
	return func(c *Channel) { c.pollCeiling = d }
}

// WithLogger sets the log entry used for command tracing.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Channel) { c.log = entry }
}

// NewChannel creates a Channel over t. The Channel takes ownership of t.
func NewChannel(t Transport, opts ...Option) *Channel {
	c := &Channel{
		transport:   t,
		clock:       clockwork.NewRealClock(),
		terminator:  DefaultLineTerminator,
		pollQuantum: DefaultPollQuantum,
		pollCeiling: DefaultPollCeiling,
		log:         logrus.NewEntry(util.Logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute drains stale output, sends command, waits settle, then polls until
// a read that returned data is followed by an empty read, or until the poll
// ceiling is spent. Whatever was accumulated is returned; reaching the ceiling
// is not an error. Only transport failures and context cancellation are.
func (c *Channel) Execute(ctx context.Context, command string, settle time.Duration) (string, error) {
	if _, err := c.Drain(); err != nil {
		return "", err
	}

	c.log.WithField("command", command).Debug("sending command")
	if err := c.transport.Send([]byte(command + c.terminator)); err != nil {
		return "", util.NewTransportError("send", err)
	}

	if err := c.sleep(ctx, settle); err != nil {
		return "", err
	}

	var (
		out     bytes.Buffer
		gotData bool
		waited  time.Duration
	)
	for waited < c.pollCeiling {
		chunk, err := c.transport.TryRead()
		if err != nil {
			return out.String(), util.NewTransportError("read", err)
		}
		if len(chunk) > 0 {
			out.Write(chunk)
			gotData = true
			continue
		}
		if gotData {
			return out.String(), nil
		}
		if err := c.sleep(ctx, c.pollQuantum); err != nil {
			return out.String(), err
		}
		waited += c.pollQuantum
	}

	c.log.WithFields(logrus.Fields{
		"command": command,
		"bytes":   out.Len(),
	}).Debug("poll ceiling reached")
	return out.String(), nil
}

// Drain discards any output already buffered by the transport and returns
// the number of bytes discarded.
func (c *Channel) Drain() (int, error) {
	n := 0
	for i := 0; i < maxDrainReads; i++ {
		chunk, err := c.transport.TryRead()
		if err != nil {
			return n, util.NewTransportError("read", err)
		}
		if len(chunk) == 0 {
			break
		}
		n += len(chunk)
	}
	if n > 0 {
		c.log.WithField("bytes", n).Debug("drained stale output")
	}
	return n, nil
}

// Close closes the underlying transport.
func (c *Channel) Close() error {
	return c.transport.Close()
}

func (c *Channel) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}
