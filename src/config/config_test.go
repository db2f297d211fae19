package config

import (
	"os"
	"path/filepath"
	"testing"

	"coindash/src/models"
)

const validYAML = `
name: coindash
host: 127.0.0.1
port: 8090
log_level: ERROR
storage:
  db_type: sqlite
  db_path: /tmp/coindash-test.db
  retention_hours: 24
network:
  timeout: 10
  retries: 2
upstream:
  providers:
    - name: coingecko
      type: coingecko
edge:
  base_url: http://127.0.0.1:8090
  websocket_url: ws://127.0.0.1:8090/ws
ranges: ["1", "7", "30"]
watch:
  - asset_id: bitcoin
    range: "7"
    currency: usd
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfig_Valid(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "coindash" || cfg.Port != 8090 {
		t.Errorf("unexpected basics: %s:%d", cfg.Name, cfg.Port)
	}
	if cfg.Storage.DBType != "sqlite" {
		t.Errorf("unexpected db type %q", cfg.Storage.DBType)
	}
	if len(cfg.Upstream.Providers) != 1 || cfg.Upstream.Providers[0].Type != "coingecko" {
		t.Errorf("unexpected providers: %+v", cfg.Upstream.Providers)
	}
	if len(cfg.Watch) != 1 || cfg.Watch[0].AssetID != "bitcoin" {
		t.Errorf("unexpected watch list: %+v", cfg.Watch)
	}
	if got := cfg.SupportedRanges(); len(got) != 3 {
		t.Errorf("unexpected ranges: %v", got)
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	if _, err := NewConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestConfig_ValidationFailures(t *testing.T) {
	cases := map[string]func(*models.MConfig){
		"empty name":          func(c *models.MConfig) { c.Name = "" },
		"empty host":          func(c *models.MConfig) { c.Host = "" },
		"privileged port":     func(c *models.MConfig) { c.Port = 80 },
		"empty db type":       func(c *models.MConfig) { c.Storage.DBType = "" },
		"sqlite without path": func(c *models.MConfig) { c.Storage.DBPath = "" },
		"zero timeout":        func(c *models.MConfig) { c.Network.RequestTimeout = 0 },
		"negative retries":    func(c *models.MConfig) { c.Network.MaxRetries = -1 },
		"provider sans type":  func(c *models.MConfig) { c.Upstream.Providers[0].Type = "" },
		"incomplete watch":    func(c *models.MConfig) { c.Watch[0].Currency = "" },
	}

	for name, mutate := range cases {
		cfg, err := NewConfig(writeConfig(t, validYAML))
		if err != nil {
			t.Fatalf("%s: baseline config invalid: %v", name, err)
		}
		mutate(cfg.MConfig)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation to fail", name)
		}
	}
}

func TestConfig_SupportedRangesFallback(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Ranges = nil
	if got := cfg.SupportedRanges(); len(got) == 0 {
		t.Error("expected the built-in default ranges")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	again, err := NewConfig(out)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Name != cfg.Name || again.Storage.DBPath != cfg.Storage.DBPath {
		t.Error("saved config did not round-trip")
	}
}
