package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/lldpsync/pkg/util"
)

const (
	readBufferSize = 4096
	chunkQueueSize = 256
)

// SSHConfig holds what is needed to open an interactive shell on a switch.
type SSHConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// KnownHostsFile enables host key verification. When empty, host keys
	// are not checked.
	KnownHostsFile string

	Timeout      time.Duration
	DialAttempts int
}

func (c SSHConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if c.KnownHostsFile != "" {
		cb, err := knownhosts.New(c.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts %s: %w", c.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	password := c.Password
	return &ssh.ClientConfig{
		User: c.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// Many switch CLIs only offer keyboard-interactive.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// SSHTransport is a Transport over an SSH interactive shell with a pty.
// A reader goroutine moves output into a queue so TryRead never blocks.
type SSHTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	chunks  chan []byte
	done    chan struct{}

	mu      sync.Mutex
	readErr error
	closed  bool
}

// DialSSH connects, authenticates and starts an interactive shell. Dial
// failures are retried with exponential backoff; authentication failures are
// not.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSHTransport, error) {
	clientConfig, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	attempts := cfg.DialAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(500*time.Millisecond))

	var client *ssh.Client
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := ssh.Dial("tcp", cfg.addr(), clientConfig)
		if err != nil {
			if isAuthError(err) {
				return err
			}
			util.WithSwitch(cfg.Host).Debugf("ssh dial failed, retrying: %v", err)
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, util.NewTransportError("dial", fmt.Errorf("%s: %w", cfg.addr(), err))
	}

	t, err := startShell(client)
	if err != nil {
		client.Close()
		return nil, util.NewTransportError("dial", err)
	}
	return t, nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

func startShell(client *ssh.Client) (*SSHTransport, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("SSH session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("requesting pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}

	t := &SSHTransport{
		client:  client,
		session: session,
		stdin:   stdin,
		chunks:  make(chan []byte, chunkQueueSize),
		done:    make(chan struct{}),
	}
	go t.readLoop(stdout)
	return t, nil
}

func (t *SSHTransport) readLoop(r io.Reader) {
	defer close(t.chunks)
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case t.chunks <- chunk:
			case <-t.done:
				return
			}
		}
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
	}
}

// Send writes p to the shell's stdin.
func (t *SSHTransport) Send(p []byte) error {
	_, err := t.stdin.Write(p)
	return err
}

// TryRead returns the next queued chunk, or nil if none is queued. Once the
// remote side has closed and the queue is empty, it returns the read error.
func (t *SSHTransport) TryRead() ([]byte, error) {
	select {
	case chunk, ok := <-t.chunks:
		if ok {
			return chunk, nil
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.readErr == nil || errors.Is(t.readErr, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, t.readErr
	default:
		return nil, nil
	}
}

// Close ends the shell session and the SSH connection.
func (t *SSHTransport) Close() error {
	if !t.stop() {
		return nil
	}
	t.session.Close()
	return t.client.Close()
}

// stop releases the reader goroutine. It reports false if already stopped.
func (t *SSHTransport) stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.closed = true
	close(t.done)
	return true
}
