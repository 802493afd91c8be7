package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Toolchain  ToolchainConfig  `yaml:"toolchain" validate:"required"`
	Limits     Limits           `yaml:"limits" validate:"required"`
	Paths      PathsConfig      `yaml:"paths" validate:"required"`
	Extraction ExtractionConfig `yaml:"extraction" validate:"required"`
	Log        LogConfig        `yaml:"log" validate:"required"`
}

// ToolchainConfig describes how the build tool is launched inside a project.
type ToolchainConfig struct {
	Command        string            `yaml:"command" validate:"required"`
	CompileTask    string            `yaml:"compile_task" validate:"required,taskname"`
	TestTask       string            `yaml:"test_task" validate:"required,taskname"`
	CoverageTask   string            `yaml:"coverage_task" validate:"required,taskname"`
	ExcludedTasks  []string          `yaml:"excluded_tasks" validate:"dive,taskname"`
	Env            map[string]string `yaml:"env"`
	DefaultModule  string            `yaml:"default_module" validate:"required,taskname"`
	Timeout        time.Duration     `yaml:"timeout" validate:"min=0s,max=2h"`
	CoverageReport string            `yaml:"coverage_report" validate:"required"`
}

type PathsConfig struct {
	StandardsDir string `yaml:"standards_dir" validate:"required"`
	DataDir      string `yaml:"data_dir" validate:"required"`
}

type ExtractionConfig struct {
	SourceRoots []string `yaml:"source_roots" validate:"required,min=1,dive,required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"required,oneof=text json"`
}

var taskNamePattern = regexp.MustCompile(`^[\w-]+$`)

// Default returns a configuration usable without any config file.
func Default() *Config {
	return &Config{
		Toolchain: ToolchainConfig{
			Command:      "./gradlew",
			CompileTask:  "compileTestKotlin",
			TestTask:     "test",
			CoverageTask: "jacocoTestReport",
			ExcludedTasks: []string{
				"kaptKotlin",
				"kaptGenerateStubsKotlin",
				"kaptTestKotlin",
				"kaptGenerateStubsTestKotlin",
			},
			Env:            map[string]string{},
			DefaultModule:  "olive-domain",
			CoverageReport: "build/reports/jacoco/test/html/index.html",
		},
		Limits: DefaultLimits(),
		Paths: PathsConfig{
			StandardsDir: filepath.Join(dataHome(), "standards"),
			DataDir:      dataHome(),
		},
		Extraction: ExtractionConfig{
			SourceRoots: []string{"kotlin", "java"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the resolved config path. A missing file
// yields the defaults; stdin and stdout are never touched.
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile reads the configuration from path, layered over Default.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("TESTLOOP_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "testloop", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "testloop", "config.yaml")
}

func dataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "testloop")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "testloop")
}

// applyEnv lets the environment override values that differ per machine.
func (c *Config) applyEnv() {
	if javaHome := os.Getenv("TESTLOOP_JAVA_HOME"); javaHome != "" {
		if c.Toolchain.Env == nil {
			c.Toolchain.Env = map[string]string{}
		}
		c.Toolchain.Env["JAVA_HOME"] = javaHome
	}
	if level := os.Getenv("TESTLOOP_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c *Config) validate() error {
	c.Paths.StandardsDir = expandTilde(c.Paths.StandardsDir)
	c.Paths.DataDir = expandTilde(c.Paths.DataDir)

	if c.Limits.MaxConcurrentValidations == 0 {
		c.Limits = DefaultLimits()
	}

	validate := validator.New()
	validate.RegisterValidation("taskname", func(fl validator.FieldLevel) bool {
		return taskNamePattern.MatchString(fl.Field().String())
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// NewLogger builds the process logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.level()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l LogConfig) level() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
