// Package testutil provides fakes shared by package tests: a scriptable
// transport, a fake switch CLI and a fake-clock driver. Redis helpers for
// integration tests live behind the integration build tag.
package testutil

import (
	"errors"
	"sync"
)

// Gap is a queue entry that makes exactly one TryRead return no data.
var Gap []byte

// Responder produces the chunks queued in reply to one sent line. Gap
// entries in the result simulate output that has not arrived yet.
type Responder func(line string) [][]byte

// FakeTransport is a deterministic session.Transport. Everything sent is
// recorded; replies come from Responder and are read back one chunk per
// TryRead.
type FakeTransport struct {
	mu        sync.Mutex
	sent      []string
	queue     [][]byte
	responder Responder

	// SendErr and ReadErr, when set, are returned by the next Send/TryRead.
	SendErr error
	ReadErr error

	closed bool
}

// NewFakeTransport creates a transport that answers with r. A nil r never
// replies.
func NewFakeTransport(r Responder) *FakeTransport {
	return &FakeTransport{responder: r}
}

// Queue appends chunks as if the remote had already sent them.
func (f *FakeTransport) Queue(chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.queue = append(f.queue, []byte(c))
	}
}

// QueueGap appends an empty-read marker.
func (f *FakeTransport) QueueGap() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, Gap)
}

// Send records p and queues the responder's reply.
func (f *FakeTransport) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("transport closed")
	}
	if f.SendErr != nil {
		return f.SendErr
	}
	f.sent = append(f.sent, string(p))
	if f.responder != nil {
		f.queue = append(f.queue, f.responder(string(p))...)
	}
	return nil
}

// TryRead pops one queued entry. Gap entries and an empty queue both yield
// (nil, nil).
func (f *FakeTransport) TryRead() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	if len(f.queue) == 0 {
		return nil, nil
	}
	chunk := f.queue[0]
	f.queue = f.queue[1:]
	return chunk, nil
}

// Close marks the transport closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (f *FakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// Pending returns the number of queued entries not yet read.
func (f *FakeTransport) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Chunks splits s into pieces of at most size bytes.
func Chunks(s string, size int) [][]byte {
	if size <= 0 || len(s) <= size {
		return [][]byte{[]byte(s)}
	}
	var out [][]byte
	for len(s) > size {
		out = append(out, []byte(s[:size]))
		s = s[size:]
	}
	if len(s) > 0 {
		out = append(out, []byte(s))
	}
	return out
}
