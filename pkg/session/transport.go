// Package session provides the interactive command channel used to drive a
// switch CLI over a half-duplex text stream, and the SSH transport beneath it.
//
// The CLI emits no end-of-response marker, so Channel.Execute bounds each
// command with a settle wait followed by a poll-until-quiet loop. Only the
// Channel touches the Transport; adapters and the engine go through Execute.
package session

// Transport is an authenticated, connected byte stream to a remote shell.
type Transport interface {
	// Send writes p to the remote shell.
	Send(p []byte) error

	// TryRead returns buffered output without blocking. A nil slice with a
	// nil error means nothing is available right now.
	TryRead() ([]byte, error)

	Close() error
}
