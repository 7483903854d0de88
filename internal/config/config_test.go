package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"API_KEY", "AI_BASE_URL", "AI_MODEL", "AI_TIMEOUT", "DB_DRIVER", "DB_DSN",
	"TRIGGER_PHRASE", "STOP_PHRASE", "LISTEN_TIMEOUT", "DUCK_AUDIO",
}

// clearEnv blanks every key so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.env")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileWithDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "api_key=secret\nDB_DSN=sqlserver://localhost?database=bp\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "secret" {
		t.Fatalf("expected api_key from file, got %q", cfg.APIKey)
	}
	if cfg.DBDriver != "sqlserver" || cfg.TriggerPhrase != "hey" || cfg.StopPhrase != "exit" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ListenTimeout != 5*time.Second || cfg.AITimeout != time.Minute {
		t.Fatalf("unexpected timeouts: %v %v", cfg.ListenTimeout, cfg.AITimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "API_KEY=file-key\nDB_DSN=file.db\nDB_DRIVER=sqlite\n")
	t.Setenv("API_KEY", "env-key")
	t.Setenv("TRIGGER_PHRASE", "Computer")
	t.Setenv("LISTEN_TIMEOUT", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("expected env to win, got %q", cfg.APIKey)
	}
	if cfg.TriggerPhrase != "computer" {
		t.Fatalf("expected lower-cased trigger, got %q", cfg.TriggerPhrase)
	}
	if cfg.ListenTimeout != 3*time.Second {
		t.Fatalf("unexpected listen timeout %v", cfg.ListenTimeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing key", "DB_DSN=x\n", "API_KEY"},
		{"missing dsn", "API_KEY=k\n", "DB_DSN"},
		{"bad driver", "API_KEY=k\nDB_DSN=x\nDB_DRIVER=oracle\n", "DB_DRIVER"},
		{"same phrases", "API_KEY=k\nDB_DSN=x\nTRIGGER_PHRASE=go\nSTOP_PHRASE=GO\n", "must differ"},
		{"bad duration", "API_KEY=k\nDB_DSN=x\nLISTEN_TIMEOUT=soon\n", "LISTEN_TIMEOUT"},
		{"bad bool", "API_KEY=k\nDB_DSN=x\nDUCK_AUDIO=maybe\n", "DUCK_AUDIO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMissingFileFallsBackToEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "k")
	t.Setenv("DB_DSN", "x")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
}
