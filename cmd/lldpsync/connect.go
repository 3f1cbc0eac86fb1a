package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/newtron-network/lldpsync/pkg/inventory"
	"github.com/newtron-network/lldpsync/pkg/session"
	"github.com/newtron-network/lldpsync/pkg/switchadapter"
	"github.com/newtron-network/lldpsync/pkg/util"
)

const (
	envUsername = "LLDPSYNC_USERNAME"
	envPassword = "LLDPSYNC_PASSWORD"
)

// credentials are resolved once per invocation and reused for every switch.
type credentials struct {
	Username string
	Password string
}

var cachedPassword string

// resolveUsername picks the login for sw: flag, then environment, then
// settings, then the inventory.
func resolveUsername(sw *inventory.Switch, flag string, getenv func(string) string, fromSettings string) string {
	switch {
	case flag != "":
		return flag
	case getenv(envUsername) != "":
		return getenv(envUsername)
	case fromSettings != "":
		return fromSettings
	}
	return sw.Username
}

// resolveCredentials returns the login for sw. The password comes from the
// environment or, on a terminal, an interactive prompt.
func resolveCredentials(sw *inventory.Switch) (credentials, error) {
	c := credentials{Username: resolveUsername(sw, username, os.Getenv, userSettings.Username)}
	if c.Username == "" {
		return c, fmt.Errorf("no username for %s: set %s, --username or defaults.username", sw.Name, envUsername)
	}

	if pw := os.Getenv(envPassword); pw != "" {
		c.Password = pw
		return c, nil
	}
	if cachedPassword != "" {
		c.Password = cachedPassword
		return c, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return c, fmt.Errorf("no password for %s: set %s for unattended runs", sw.Name, envPassword)
	}

	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", c.Username, sw.Host)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return c, fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return c, errors.New("empty password")
	}
	cachedPassword = string(pw)
	c.Password = cachedPassword
	return c, nil
}

// switchSession is an open shell on one switch.
type switchSession struct {
	Channel *session.Channel
	Adapter switchadapter.Adapter
}

func (s *switchSession) Close() error {
	return s.Channel.Close()
}

func sshConfigFor(sw *inventory.Switch, d inventory.Defaults, creds credentials) session.SSHConfig {
	return session.SSHConfig{
		Host:           sw.Host,
		Port:           sw.Port,
		Username:       creds.Username,
		Password:       creds.Password,
		KnownHostsFile: d.KnownHosts,
		Timeout:        d.Timeout,
		DialAttempts:   d.DialAttempts,
	}
}

// openSession dials sw and wraps the shell in a channel and the vendor adapter.
func openSession(ctx context.Context, sw *inventory.Switch) (*switchSession, error) {
	if !switchadapter.Supported(sw.Vendor) {
		return nil, &util.UnsupportedVendorError{Vendor: sw.Vendor, Known: switchadapter.Vendors()}
	}

	creds, err := resolveCredentials(sw)
	if err != nil {
		return nil, err
	}

	util.WithSwitch(sw.Name).WithField("host", sw.Host).Debug("connecting")
	transport, err := session.DialSSH(ctx, sshConfigFor(sw, inv.Defaults, creds))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", sw.Name, err)
	}

	ch := session.NewChannel(transport, session.WithLogger(util.WithSwitch(sw.Name)))
	adapter, err := switchadapter.New(sw.Vendor, ch)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return &switchSession{Channel: ch, Adapter: adapter}, nil
}
