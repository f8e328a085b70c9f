package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_ParsesAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.yaml")
	data := `
accounts:
  - id: work
    host: imap.example.org
    user: alice
    password: secret
    folders: [INBOX, Sent]
storage:
  backend: s3
  s3:
    bucket: mail-archive
    region: eu-west-1
state:
  path: /tmp/state.db
sync:
  batch_size: 25
  parallelism: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Accounts) != 1 {
		t.Fatalf("accounts: %d", len(cfg.Accounts))
	}
	acct := cfg.Accounts[0]
	if acct.ID != "work" || acct.Host != "imap.example.org" || len(acct.Folders) != 2 {
		t.Errorf("account: %+v", acct)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.S3.Bucket != "mail-archive" {
		t.Errorf("storage: %+v", cfg.Storage)
	}
	if cfg.Sync.BatchSize != 25 || cfg.Sync.Parallelism != 4 {
		t.Errorf("sync: %+v", cfg.Sync)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadConfig_RequiresAccountID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.yaml")
	data := "accounts:\n  - host: imap.example.org\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestDefaultConfig_SaneValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Sync.BatchSize <= 0 || cfg.Sync.Parallelism <= 0 {
		t.Errorf("sync defaults: %+v", cfg.Sync)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("storage default: %+v", cfg.Storage)
	}
}
