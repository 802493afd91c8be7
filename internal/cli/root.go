// Package cli implements the testloop command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/testloop/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrOperationFailed is returned when a command ran but its result is a
// failure. The result itself has already been printed.
var ErrOperationFailed = errors.New("operation failed")

type globalOptions struct {
	configFile string
	pretty     bool
	logLevel   string
}

// NewRootCmd builds the command tree. Results go to stdout, logs to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "testloop",
		Short: "Generate Kotlin service tests and drive them until they compile and pass",
		Long: `testloop scaffolds unit and integration tests for dependency-injected
Kotlin services and validates them with Gradle: compile, run, apply a known
fix, retry. Every run is archived and can be inspected later.

Quick Start:
  testloop generate domainA/src/main/kotlin/com/x/FooServiceImpl.kt
  testloop validate domainA/src/test/kotlin/com/x/FooServiceImplTest.kt --coverage
  testloop serve                     # MCP server on stdio
  testloop runs list --pretty`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ~/.config/testloop/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "render results for a terminal instead of JSON")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newAnalyzeCmd(opts),
		newRunsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrOperationFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "testloop version %s\n", Version)
		},
	}
}
