package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envOrganization, envToken, envUser, envBaseURL, envArtifactDir, envPageSize, envPostgresDSN, envBrokers} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("valid settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(envOrganization, "contoso")
		t.Setenv(envToken, "pat-12345")
		t.Setenv(envBrokers, "localhost:19092, other:9092 ,")
		t.Setenv(envPageSize, "50")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.Organization != "contoso" {
			t.Errorf("Organization = %q, want contoso", cfg.Organization)
		}
		if cfg.Token != "pat-12345" {
			t.Errorf("Token = %q, want pat-12345", cfg.Token)
		}
		if want := []string{"localhost:19092", "other:9092"}; !reflect.DeepEqual(cfg.Brokers, want) {
			t.Errorf("Brokers = %v, want %v", cfg.Brokers, want)
		}
		if cfg.PageSize != 50 {
			t.Errorf("PageSize = %d, want 50", cfg.PageSize)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(envOrganization, "contoso")

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing token, got nil")
		}
	})

	t.Run("missing organization", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(envToken, "pat")

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing organization, got nil")
		}
	})

	t.Run("bad page size", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(envOrganization, "contoso")
		t.Setenv(envToken, "pat")
		t.Setenv(envPageSize, "zero")

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for bad page size, got nil")
		}
	})
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "azdo-monitor", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "organization: from-file\nartifact_dir: /tmp/artifacts\npage_size: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envOrganization, "from-env")
	t.Setenv(envToken, "pat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Organization != "from-env" {
		t.Errorf("Organization = %q, want env override", cfg.Organization)
	}
	if cfg.ArtifactDir != "/tmp/artifacts" {
		t.Errorf("ArtifactDir = %q, want value from file", cfg.ArtifactDir)
	}
	if cfg.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.PageSize)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Organization != "" {
		t.Errorf("Organization = %q, want empty", cfg.Organization)
	}
}

func TestSave_OmitsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := &Config{Organization: "contoso", Token: "secret-pat"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-pat") {
		t.Error("saved config contains the token")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Organization != "contoso" {
		t.Errorf("Organization = %q, want contoso", loaded.Organization)
	}
}

func TestSession(t *testing.T) {
	cfg := &Config{Organization: "contoso", Token: "pat"}
	sess := cfg.Session()

	if sess.Organization != "contoso" {
		t.Errorf("Organization = %q", sess.Organization)
	}
	// base64(":pat")
	if sess.Authorization != "Basic OnBhdA==" {
		t.Errorf("Authorization = %q, want Basic OnBhdA==", sess.Authorization)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(c *Config) bool
		wantErr string
	}{
		{key: "organization", value: "fabrikam", check: func(c *Config) bool { return c.Organization == "fabrikam" }},
		{key: "page_size", value: "25", check: func(c *Config) bool { return c.PageSize == 25 }},
		{key: "brokers", value: "a:9092, b:9092", check: func(c *Config) bool {
			return reflect.DeepEqual(c.Brokers, []string{"a:9092", "b:9092"})
		}},
		{key: "page_size", value: "many", wantErr: "non-negative integer"},
		{key: "token", value: "secret", wantErr: envToken},
		{key: "colour", value: "blue", wantErr: "unknown setting"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			c := &Config{}
			err := c.Set(tt.key, tt.value)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Set() error = %v, want containing %q", err, tt.wantErr)
				}
				if c.Token != "" {
					t.Error("token must not be set")
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if !tt.check(c) {
				t.Errorf("Set(%q, %q) not applied: %+v", tt.key, tt.value, c)
			}
		})
	}
}
