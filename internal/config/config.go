// Package config handles loading and managing imexport configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the imexport configuration.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Export ExportConfig `toml:"export"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// StoreConfig locates the Messages database and its attachment tree.
type StoreConfig struct {
	DBPath         string `toml:"db_path"`
	AttachmentsDir string `toml:"attachments_dir"`
}

// ExportConfig holds default output locations per export format.
type ExportConfig struct {
	CSVOutput  string `toml:"csv_output"`
	JSONOutput string `toml:"json_output"`
	HTMLOutput string `toml:"html_output"`
}

// DefaultHome returns the default imexport home directory.
// Respects the IMEXPORT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("IMEXPORT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".imexport"
	}
	return filepath.Join(home, ".imexport")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.imexport/config.toml).
// The config file is optional; defaults point at the standard macOS
// Messages locations.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Store: StoreConfig{
			DBPath:         "~/Library/Messages/chat.db",
			AttachmentsDir: "~/Library/Messages/Attachments",
		},
		Export: ExportConfig{
			CSVOutput:  "imessage_chat.csv",
			JSONOutput: "imessage_all.json",
			HTMLOutput: "imessage_html",
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.expand()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.expand()
	return cfg, nil
}

func (c *Config) expand() {
	c.Store.DBPath = ExpandPath(c.Store.DBPath)
	c.Store.AttachmentsDir = ExpandPath(c.Store.AttachmentsDir)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
