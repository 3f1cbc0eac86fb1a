// Package inventory loads the YAML file listing the switches lldpsync
// manages and the backends it reports to.
package inventory

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/lldpsync/pkg/switchadapter"
	"github.com/newtron-network/lldpsync/pkg/util"
)

const (
	DefaultSSHPort       = 22
	DefaultReviewSeconds = 10
	DefaultTimeout       = 10 * time.Second
	DefaultDialAttempts  = 3
	DefaultHistory       = 50
	DefaultRedisAddr     = "localhost:6379"
	DefaultAuditMaxSize  = 10 << 20
	DefaultAuditBackups  = 5
)

// Inventory is the top-level inventory file.
type Inventory struct {
	Defaults Defaults      `yaml:"defaults"`
	Switches []Switch      `yaml:"switches"`
	Redis    RedisConfig   `yaml:"redis"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Audit    AuditConfig   `yaml:"audit"`
}

// Defaults apply to every switch that leaves the field unset.
type Defaults struct {
	Vendor        string        `yaml:"vendor"`
	Username      string        `yaml:"username"`
	Port          int           `yaml:"port"`
	ReviewSeconds int           `yaml:"review_seconds"`
	Timeout       time.Duration `yaml:"timeout"`
	KnownHosts    string        `yaml:"known_hosts"`
	DialAttempts  int           `yaml:"dial_attempts"`
}

// Switch is one managed switch.
type Switch struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Vendor   string `yaml:"vendor"`
	Username string `yaml:"username"`

	// Ports limits reconciliation to a port range such as "Gi1/0/1-24,Te1/0/1-2".
	Ports string `yaml:"ports"`
}

// RedisConfig enables report history. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	History  int    `yaml:"history"`
}

// MetricsConfig enables a node_exporter textfile. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// AuditConfig configures the audit log. An empty Path disables it.
type AuditConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load parses an inventory file, applies defaults and validates it.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}
	inv.applyDefaults()
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("validating inventory: %w", err)
	}
	return &inv, nil
}

func (inv *Inventory) applyDefaults() {
	d := &inv.Defaults
	if d.Vendor == "" {
		d.Vendor = switchadapter.VendorDellV6
	}
	if d.Port == 0 {
		d.Port = DefaultSSHPort
	}
	if d.ReviewSeconds == 0 {
		d.ReviewSeconds = DefaultReviewSeconds
	}
	if d.Timeout == 0 {
		d.Timeout = DefaultTimeout
	}
	if d.DialAttempts == 0 {
		d.DialAttempts = DefaultDialAttempts
	}

	for i := range inv.Switches {
		sw := &inv.Switches[i]
		if sw.Port == 0 {
			sw.Port = d.Port
		}
		if sw.Vendor == "" {
			sw.Vendor = d.Vendor
		}
		if sw.Username == "" {
			sw.Username = d.Username
		}
	}

	if inv.Redis.Addr != "" && inv.Redis.History == 0 {
		inv.Redis.History = DefaultHistory
	}
	if inv.Audit.Path != "" {
		if inv.Audit.MaxSize == 0 {
			inv.Audit.MaxSize = DefaultAuditMaxSize
		}
		if inv.Audit.MaxBackups == 0 {
			inv.Audit.MaxBackups = DefaultAuditBackups
		}
	}
}

// Validate checks the inventory after defaults have been applied.
func (inv *Inventory) Validate() error {
	v := &util.ValidationBuilder{}

	v.Add(len(inv.Switches) > 0, "at least one switch is required")
	v.Add(inv.Defaults.ReviewSeconds >= 0, "defaults.review_seconds must not be negative")
	v.Add(inv.Defaults.DialAttempts >= 1, "defaults.dial_attempts must be at least 1")

	seen := make(map[string]bool)
	for i, sw := range inv.Switches {
		label := sw.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			v.AddErrorf("switch %s: name is required", label)
		} else if seen[sw.Name] {
			v.AddErrorf("switch %s: duplicate name", label)
		}
		seen[sw.Name] = true

		if sw.Host == "" {
			v.AddErrorf("switch %s: host is required", label)
		}
		if sw.Port < 1 || sw.Port > 65535 {
			v.AddErrorf("switch %s: port %d out of range", label, sw.Port)
		}
		if !switchadapter.Supported(sw.Vendor) {
			v.AddErrorf("switch %s: unsupported vendor %q (known: %v)", label, sw.Vendor, switchadapter.Vendors())
		}
		if sw.Ports != "" {
			if _, err := util.ExpandPortRange(sw.Ports); err != nil {
				v.AddErrorf("switch %s: %v", label, err)
			}
		}
	}

	if inv.Redis.Addr != "" {
		v.Add(inv.Redis.History > 0, "redis.history must be positive")
	}
	return v.Build()
}

// Switch returns the switch named name.
func (inv *Inventory) Switch(name string) (*Switch, error) {
	for i := range inv.Switches {
		if inv.Switches[i].Name == name {
			return &inv.Switches[i], nil
		}
	}
	return nil, fmt.Errorf("switch %q not found in inventory", name)
}

// Names returns the switch names sorted.
func (inv *Inventory) Names() []string {
	names := make([]string, 0, len(inv.Switches))
	for _, sw := range inv.Switches {
		names = append(names, sw.Name)
	}
	sort.Strings(names)
	return names
}

// PortList expands the switch's port range. Nil means all ports.
func (sw *Switch) PortList() ([]string, error) {
	if sw.Ports == "" {
		return nil, nil
	}
	return util.ExpandPortRange(sw.Ports)
}
