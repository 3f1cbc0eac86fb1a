// Package settings manages persistent user settings for the lldpsync CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultInventoryPath is used when neither --inventory nor the settings
// file name an inventory.
const DefaultInventoryPath = "/etc/lldpsync/inventory.yaml"

// Settings holds persistent user preferences
type Settings struct {
	// Inventory is the inventory file to use when --inventory is not specified
	Inventory string `json:"inventory,omitempty"`

	// Username overrides the inventory's default login
	Username string `json:"username,omitempty"`

	// AuditLog overrides the inventory's audit log path
	AuditLog string `json:"audit_log,omitempty"`

	// LastSwitch is the switch used by the most recent run
	LastSwitch string `json:"last_switch,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lldpsync_settings.json"
	}
	return filepath.Join(home, ".lldpsync", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetInventory returns the inventory path (with fallback)
func (s *Settings) GetInventory() string {
	if s.Inventory != "" {
		return s.Inventory
	}
	return DefaultInventoryPath
}

// Set assigns a setting by its JSON key. It reports false for unknown keys.
func (s *Settings) Set(key, value string) bool {
	switch key {
	case "inventory":
		s.Inventory = value
	case "username":
		s.Username = value
	case "audit_log":
		s.AuditLog = value
	case "last_switch":
		s.LastSwitch = value
	default:
		return false
	}
	return true
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{"inventory", "username", "audit_log", "last_switch"}
}

// Get returns a setting by its JSON key.
func (s *Settings) Get(key string) (string, bool) {
	switch key {
	case "inventory":
		return s.Inventory, true
	case "username":
		return s.Username, true
	case "audit_log":
		return s.AuditLog, true
	case "last_switch":
		return s.LastSwitch, true
	}
	return "", false
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
