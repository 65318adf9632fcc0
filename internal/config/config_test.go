package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingCredentialIsFatal(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	path := writeConfig(t, `{"provider": {"model": "gpt-4o-mini"}}`)

	_, err := Load(path)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestLoadEnvOverridesFileKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-env")
	path := writeConfig(t, `{"provider": {"api_key": "sk-file"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-env" {
		t.Fatalf("api key = %q, want env value", cfg.Provider.APIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("base url = %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", cfg.Provider.Model)
	}
}

func TestLoadAnchorsRelativeSqliteDSN(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	path := writeConfig(t, `{
		"databases": {
			"sqlite3": {"dsn": "data/app.db"},
			"mysql":   {"dsn": "user:pass@tcp(localhost:3306)/app"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "app.db")
	if cfg.Databases["sqlite3"].DSN != want {
		t.Fatalf("sqlite dsn = %q, want %q", cfg.Databases["sqlite3"].DSN, want)
	}
	if cfg.Databases["mysql"].DSN != "user:pass@tcp(localhost:3306)/app" {
		t.Fatalf("mysql dsn must not be rewritten, got %q", cfg.Databases["mysql"].DSN)
	}
}

func TestLoadLeavesSpecialSqliteDSNsAlone(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	path := writeConfig(t, `{
		"databases": {
			"sqlite3": {"dsn": ":memory:"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Databases["sqlite3"].DSN != ":memory:" {
		t.Fatalf("dsn = %q, want :memory:", cfg.Databases["sqlite3"].DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
