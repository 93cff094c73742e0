// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/sistema-fic/models"
)

// clearEnv blanks every variable ParseFlags reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_URL", "DATABASE_TYPE", "FIC_CONFIG", "LOG_LEVEL",
		"JWT_SECRET", "IP_HASH_SALT", "AI_ENDPOINT", "AI_MODEL", "AI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Errorf("expected postgres inferred from URL, got %s", cfg.DatabaseType)
	}
	if cfg.IPHashSalt != "test-secret" {
		t.Errorf("expected IP salt to fall back to JWT secret, got %s", cfg.IPHashSalt)
	}
	if cfg.AI.Enabled() {
		t.Error("AI should be disabled without endpoint and model")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8081", "-d", "file:test.db", "-jwt-secret", "s1", "-ip-salt", "s2"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8081 {
		t.Errorf("CLI should override env: expected 8081, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite {
		t.Errorf("expected sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.IPHashSalt != "s2" {
		t.Errorf("expected ip salt s2, got %s", cfg.IPHashSalt)
	}
}

func TestParseFlags_MissingRequired(t *testing.T) {
	clearEnv(t)

	if _, err := ParseFlags([]string{"-jwt-secret", "s"}); err == nil {
		t.Error("expected error without database URL")
	}
	if _, err := ParseFlags([]string{"-d", "file:test.db"}); err == nil {
		t.Error("expected error without JWT secret")
	}
	if _, err := ParseFlags([]string{"-d", "file:test.db", "-jwt-secret", "s", "-t", "mysql"}); err == nil {
		t.Error("expected error for unsupported database type")
	}
}

func TestParseFlags_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "fic.yaml")
	content := `
dimensions:
  - key: governanca
    label: Governança
  - key: clima
    label: Clima organizacional
ai:
  endpoint: http://localhost:11434/v1
  model: llama3
  temperature: 0.1
  timeout: 30s
session_idle_timeout: 45m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AI_MODEL", "qwen2.5")

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-jwt-secret", "s", "-c", path})
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Dimensions) != 2 || cfg.Dimensions[0].Key != "governanca" {
		t.Errorf("unexpected dimensions: %+v", cfg.Dimensions)
	}
	if cfg.AI.Model != "qwen2.5" {
		t.Errorf("env should override file model, got %s", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.AI.Timeout)
	}
	if cfg.AI.MaxAttempts != 2 {
		t.Errorf("expected default max attempts 2, got %d", cfg.AI.MaxAttempts)
	}
	if cfg.SessionIdleTimeout != 45*time.Minute {
		t.Errorf("expected 45m idle timeout, got %s", cfg.SessionIdleTimeout)
	}
	if !cfg.AI.Enabled() {
		t.Error("AI should be enabled")
	}
	if !cfg.HasDimension("clima") || cfg.HasDimension("financas") {
		t.Error("HasDimension should follow the catalogue")
	}
}

func TestParseFlags_Temperature(t *testing.T) {
	tests := []struct {
		name string
		yaml string // empty means no config file
		want float64
	}{
		{"no file", "", DefaultTemperature},
		{"key absent", "ai:\n  model: llama3\n", DefaultTemperature},
		{"explicit zero", "ai:\n  temperature: 0\n", 0},
		{"explicit value", "ai:\n  temperature: 0.7\n", 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			args := []string{"-d", "file:test.db", "-jwt-secret", "s"}
			if tt.yaml != "" {
				path := filepath.Join(t.TempDir(), "fic.yaml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
					t.Fatal(err)
				}
				args = append(args, "-c", path)
			}

			cfg, err := ParseFlags(args)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.AI.Temperature != tt.want {
				t.Errorf("temperature = %v, want %v", cfg.AI.Temperature, tt.want)
			}
		})
	}
}

func TestInferDatabaseType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://fic@localhost/fic", DatabasePostgres},
		{"postgresql://fic@localhost/fic", DatabasePostgres},
		{"file:fic.db", DatabaseSQLite},
		{"fic.db", DatabaseSQLite},
	}
	for _, tt := range tests {
		if got := InferDatabaseType(tt.url); got != tt.want {
			t.Errorf("InferDatabaseType(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{Port: 8080}, false},
		{"bad port", Config{Port: 70000}, true},
		{"bad temperature", Config{Port: 8080, AI: AIConfig{Temperature: 3}}, true},
		{"reserved dimension", Config{Port: 8080, Dimensions: []models.Dimension{{Key: "all"}}}, true},
		{"duplicate dimension", Config{Port: 8080, Dimensions: []models.Dimension{{Key: "a"}, {Key: "a"}}}, true},
		{"empty dimension key", Config{Port: 8080, Dimensions: []models.Dimension{{Label: "x"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasDimension_EmptyCatalogue(t *testing.T) {
	cfg := Config{}
	if !cfg.HasDimension("anything") {
		t.Error("empty catalogue should accept any key")
	}
	if cfg.HasDimension("") || cfg.HasDimension("all") {
		t.Error("empty and reserved keys must be rejected")
	}
}
