package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.Paths = PathsConfig{
		StandardsDir: "standards",
		DataDir:      "data",
	}
	return *cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "module name with a path separator",
			mutate: func(c *Config) {
				c.Toolchain.DefaultModule = "olive/domain"
			},
			wantErr: true,
			errMsg:  "DefaultModule",
		},
		{
			name: "excluded task with spaces",
			mutate: func(c *Config) {
				c.Toolchain.ExcludedTasks = []string{"kaptKotlin", "kapt Kotlin"}
			},
			wantErr: true,
			errMsg:  "ExcludedTasks",
		},
		{
			name: "timeout too long",
			mutate: func(c *Config) {
				c.Toolchain.Timeout = 3 * time.Hour
			},
			wantErr: true,
			errMsg:  "Timeout",
		},
		{
			name: "unknown log format",
			mutate: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantErr: true,
			errMsg:  "Format",
		},
		{
			name: "too many retries",
			mutate: func(c *Config) {
				c.Limits.MaxRetries = 50
			},
			wantErr: true,
			errMsg:  "MaxRetries",
		},
		{
			name: "no source roots",
			mutate: func(c *Config) {
				c.Extraction.SourceRoots = nil
			},
			wantErr: true,
			errMsg:  "SourceRoots",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestDefaultLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Limits = Limits{}

	if err := cfg.validate(); err != nil {
		t.Errorf("DefaultLimits() should produce valid config, got error: %v", err)
	}
	if cfg.Limits != DefaultLimits() {
		t.Errorf("zero limits should be replaced by defaults, got %+v", cfg.Limits)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("TESTLOOP_JAVA_HOME", "/opt/jdk11")
	t.Setenv("TESTLOOP_LOG_LEVEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
toolchain:
  default_module: domainA
  timeout: 10m
  env:
    GRADLE_OPTS: -Xmx2g
limits:
  max_retries: 5
  max_concurrent_validations: 4
  rate_limit:
    launches_per_minute: 60
    burst_size: 2
paths:
  standards_dir: ` + filepath.Join(dir, "docs") + `
log:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Toolchain.DefaultModule != "domainA" {
		t.Errorf("DefaultModule = %q", cfg.Toolchain.DefaultModule)
	}
	if cfg.Toolchain.Timeout != 10*time.Minute {
		t.Errorf("Timeout = %v", cfg.Toolchain.Timeout)
	}
	if cfg.Toolchain.Command != "./gradlew" {
		t.Errorf("unset command should keep default, got %q", cfg.Toolchain.Command)
	}
	if cfg.Toolchain.Env["JAVA_HOME"] != "/opt/jdk11" || cfg.Toolchain.Env["GRADLE_OPTS"] != "-Xmx2g" {
		t.Errorf("Env = %v", cfg.Toolchain.Env)
	}
	if cfg.Limits.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.Limits.MaxRetries)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TESTLOOP_JAVA_HOME", "")
	t.Setenv("TESTLOOP_LOG_LEVEL", "DEBUG")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Limits.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Limits.MaxRetries)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if _, ok := cfg.Toolchain.Env["JAVA_HOME"]; ok {
		t.Errorf("JAVA_HOME should not be set")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TESTLOOP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := getConfigPath(); got != filepath.Join("/xdg", "testloop", "config.yaml") {
		t.Errorf("getConfigPath() = %q", got)
	}

	t.Setenv("TESTLOOP_CONFIG", "/etc/testloop.yaml")
	if got := getConfigPath(); got != "/etc/testloop.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
