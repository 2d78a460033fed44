package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"sqlite default backend", StorageConfig{Path: "a.db"}, false},
		{"sqlite without path", StorageConfig{Backend: "sqlite"}, true},
		{"postgres", StorageConfig{Backend: "postgres", DSN: "postgres://localhost/ansuz"}, false},
		{"postgres without dsn", StorageConfig{Backend: "postgres", Path: "a.db"}, true},
		{"unknown backend", StorageConfig{Backend: "mongo", Path: "a.db"}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestTransferAndSearchConfig(t *testing.T) {
	tr := TransferConfig{Dir: "x", Watch: true}
	if err := tr.Validate(); err == nil {
		t.Error("watch without pattern should fail")
	}
	s := SearchConfig{Limit: -1}
	if err := s.Validate(); err == nil {
		t.Error("negative search limit should fail")
	}
	app := ApplicationConfig{LogFormat: "xml", HTTP: HTTPConfig{Port: 80}}
	if err := app.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("ANSUZ_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  log_format: text
  http:
    port: 9090
storage:
  path: /tmp/ansuz-test.db
search:
  limit: 0
auth:
  mode: token
  token: ${ANSUZ_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.LogFormat != LogFormatText || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "/tmp/ansuz-test.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Search.Limit != 0 || cfg.Auth.Token != "s3cret" {
		t.Errorf("search = %+v auth = %+v", cfg.Search, cfg.Auth)
	}
	if cfg.Transfer.Dir != "./transfer" {
		t.Errorf("transfer default lost: %+v", cfg.Transfer)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}
