package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"wren/internal/blobstorage"
)

// Config holds the archive service configuration
type Config struct {
	Accounts []AccountConfig    `yaml:"accounts"`
	Storage  blobstorage.Config `yaml:"storage"`
	State    StateConfig        `yaml:"state"`
	Sync     SyncConfig         `yaml:"sync"`
}

// AccountConfig holds one IMAP account to archive
type AccountConfig struct {
	ID       string   `yaml:"id"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	TLS      string   `yaml:"tls"` // implicit, starttls or none
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Folders  []string `yaml:"folders"` // empty means all folders
}

// StateConfig holds the sync state database configuration
type StateConfig struct {
	Path string `yaml:"path"`
}

// SyncConfig holds sync tuning knobs
type SyncConfig struct {
	BatchSize   int `yaml:"batch_size"`  // UIDs fetched per FETCH command
	Parallelism int `yaml:"parallelism"` // concurrent folder syncs per account
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		State: StateConfig{
			Path: "data/archive.db",
		},
		Storage: blobstorage.Config{
			Backend: "local",
			Local:   blobstorage.LocalConfig{Path: "data/mail"},
		},
		Sync: SyncConfig{
			BatchSize:   50,
			Parallelism: 2,
		},
	}
}

// LoadConfig loads configuration from the first readable path
func LoadConfig(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{
			"/etc/wren/archive.yaml",
			"./config/archive.yaml",
			"./archive.yaml",
		}
	}

	var data []byte
	var err error
	for _, path := range paths {
		data, err = os.ReadFile(filepath.Clean(path))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no readable config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for i, acct := range c.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("account %d: id is required", i)
		}
		if acct.Host == "" {
			return fmt.Errorf("account %q: host is required", acct.ID)
		}
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 50
	}
	if c.Sync.Parallelism <= 0 {
		c.Sync.Parallelism = 1
	}
	return nil
}
