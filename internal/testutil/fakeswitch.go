package testutil

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	showDescRe = regexp.MustCompile(`^show running-config interface (\S+) \| include description$`)
	setDescRe  = regexp.MustCompile(`^description "(.*)"$`)
	ifaceRe    = regexp.MustCompile(`^interface (\S+)$`)
)

// FakeSwitch emulates the CLI of a switch speaking the dellv6 grammar. It
// keeps an in-memory running config of interface descriptions and can be
// plugged into a FakeTransport as its Responder.
type FakeSwitch struct {
	Hostname string

	// ChunkSize splits every reply into pieces of this many bytes.
	ChunkSize int

	// LeadingGaps delays every reply by this many empty reads.
	LeadingGaps int

	// BeforeShow, if set, runs before a description lookup for port is
	// answered. n counts lookups of that port starting at 1.
	BeforeShow func(sw *FakeSwitch, port string, n int)

	mu           sync.Mutex
	neighbors    string
	descriptions map[string]string
	showCounts   map[string]int
	mode         string // "", "config", "interface"
	current      string
	commands     []string
	persisted    bool
}

// NewFakeSwitch creates a switch whose neighbor dump is neighbors.
func NewFakeSwitch(neighbors string) *FakeSwitch {
	return &FakeSwitch{
		Hostname:     "console",
		neighbors:    neighbors,
		descriptions: make(map[string]string),
		showCounts:   make(map[string]int),
	}
}

// Transport returns a FakeTransport wired to this switch.
func (s *FakeSwitch) Transport() *FakeTransport {
	return NewFakeTransport(s.Respond)
}

// SetDescription sets a running-config description directly, as another
// operator would.
func (s *FakeSwitch) SetDescription(port, desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptions[port] = desc
}

// Description returns the running-config description of port.
func (s *FakeSwitch) Description(port string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptions[port]
}

// SetNeighbors replaces the neighbor dump.
func (s *FakeSwitch) SetNeighbors(dump string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neighbors = dump
}

// Commands returns every command line received, in order.
func (s *FakeSwitch) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// ConfigCommands returns received commands that change configuration.
func (s *FakeSwitch) ConfigCommands() []string {
	var out []string
	for _, c := range s.Commands() {
		if c == "conf" || c == "end" || c == "exit" || ifaceRe.MatchString(c) || setDescRe.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// Persisted reports whether a save-to-startup command was ever received.
func (s *FakeSwitch) Persisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

// Respond implements Responder.
func (s *FakeSwitch) Respond(line string) [][]byte {
	cmd := strings.TrimRight(line, "\r\n")

	var hook func()
	if m := showDescRe.FindStringSubmatch(cmd); m != nil && s.BeforeShow != nil {
		s.mu.Lock()
		s.showCounts[m[1]]++
		n := s.showCounts[m[1]]
		s.mu.Unlock()
		port := m[1]
		hook = func() { s.BeforeShow(s, port, n) }
	}
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	body := s.handle(cmd)
	prompt := s.prompt()
	s.mu.Unlock()

	reply := cmd + "\r\n"
	if body != "" {
		reply += body + "\r\n"
	}
	reply += "\r\n" + prompt

	out := make([][]byte, 0, s.LeadingGaps+1)
	for i := 0; i < s.LeadingGaps; i++ {
		out = append(out, Gap)
	}
	return append(out, Chunks(reply, s.ChunkSize)...)
}

func (s *FakeSwitch) handle(cmd string) string {
	s.commands = append(s.commands, cmd)

	switch {
	case cmd == "terminal length 0":
		return ""
	case cmd == "show lldp remote-device all":
		return s.neighbors
	case showDescRe.MatchString(cmd):
		port := showDescRe.FindStringSubmatch(cmd)[1]
		if d, ok := s.descriptions[port]; ok && d != "" {
			return fmt.Sprintf("description \"%s\"", d)
		}
		return ""
	case cmd == "conf" || cmd == "configure":
		s.mode = "config"
		return ""
	case ifaceRe.MatchString(cmd) && s.mode != "":
		s.mode = "interface"
		s.current = ifaceRe.FindStringSubmatch(cmd)[1]
		return ""
	case setDescRe.MatchString(cmd) && s.mode == "interface":
		s.descriptions[s.current] = setDescRe.FindStringSubmatch(cmd)[1]
		return ""
	case cmd == "exit":
		if s.mode == "interface" {
			s.mode = "config"
			s.current = ""
		}
		return ""
	case cmd == "end":
		s.mode = ""
		s.current = ""
		return ""
	case cmd == "write memory" || strings.HasPrefix(cmd, "copy running-config startup-config"):
		s.persisted = true
		return "Configuration saved!"
	default:
		return "% Invalid input detected at '^' marker."
	}
}

func (s *FakeSwitch) prompt() string {
	switch s.mode {
	case "config":
		return s.Hostname + "(config)#"
	case "interface":
		return s.Hostname + "(config-if-" + s.current + ")#"
	default:
		return s.Hostname + "#"
	}
}
