package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/testloop/internal/server"
	"github.com/vampirenirmal/testloop/internal/service"
)

func (o *globalOptions) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, cmd.ErrOrStderr()), nil
}

func addProjectRootFlag(cmd *cobra.Command, root *string) {
	cmd.Flags().StringVarP(root, "project-root", "C", ".", "project root directory")
}

func absRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	return abs, nil
}

func readSymbols(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	return json.RawMessage(data), nil
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the test tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			srv := server.New(a.service, a.standards, server.WithLogger(a.logger))
			return srv.ServeStdio(cmd.Context(), Version, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		root        string
		testPath    string
		symbolsFile string
		integration bool
		noValidate  bool
		maxRetries  int
		coverage    bool
	)

	cmd := &cobra.Command{
		Use:   "generate <service-path>",
		Short: "Generate a test for a service class and validate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			projectRoot, err := absRoot(root)
			if err != nil {
				return err
			}
			symbols, err := readSymbols(symbolsFile)
			if err != nil {
				return err
			}

			validate := !noValidate
			req := service.GenerateRequest{
				ProjectRoot:    projectRoot,
				ServicePath:    args[0],
				SerenaAnalysis: symbols,
				TestPath:       testPath,
				Validate:       &validate,
				MaxRetries:     maxRetries,
				CheckCoverage:  coverage,
			}

			var env *service.Envelope
			if integration {
				env = a.service.GenerateIntegrationTest(cmd.Context(), req)
			} else {
				env = a.service.GenerateUnitTest(cmd.Context(), req)
			}
			return emitEnvelopes(cmd, opts, env)
		},
	}

	addProjectRootFlag(cmd, &root)
	cmd.Flags().StringVar(&testPath, "test-path", "", "where to write the test (default: mirrored into src/test)")
	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "JSON file with a symbol tree from a static-analysis tool")
	cmd.Flags().BoolVar(&integration, "integration", false, "generate a Spring integration test")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "only write the test")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per phase (default from config)")
	cmd.Flags().BoolVar(&coverage, "coverage", false, "build a coverage report after a successful validation")
	return cmd
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		root       string
		maxRetries int
		coverage   bool
	)

	cmd := &cobra.Command{
		Use:   "validate <test-path>...",
		Short: "Compile, run and repair existing test files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			projectRoot, err := absRoot(root)
			if err != nil {
				return err
			}

			reqs := make([]service.ValidateRequest, len(args))
			for i, p := range args {
				reqs[i] = service.ValidateRequest{
					ProjectRoot:   projectRoot,
					TestPath:      p,
					MaxRetries:    maxRetries,
					CheckCoverage: coverage,
				}
			}

			envs := a.service.ValidateAll(cmd.Context(), reqs, a.cfg.Limits.MaxConcurrentValidations)
			return emitEnvelopes(cmd, opts, envs...)
		},
	}

	addProjectRootFlag(cmd, &root)
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per phase (default from config)")
	cmd.Flags().BoolVar(&coverage, "coverage", false, "build a coverage report after a successful validation")
	return cmd
}

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var (
		root        string
		symbolsFile string
	)

	cmd := &cobra.Command{
		Use:   "analyze <service-path>",
		Short: "Show the methods, dependencies and imports of a service class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			projectRoot, err := absRoot(root)
			if err != nil {
				return err
			}
			symbols, err := readSymbols(symbolsFile)
			if err != nil {
				return err
			}

			env := a.service.AnalyzeService(cmd.Context(), service.AnalyzeRequest{
				ProjectRoot:    projectRoot,
				ServicePath:    args[0],
				SerenaAnalysis: symbols,
			})
			return emitEnvelopes(cmd, opts, env)
		},
	}

	addProjectRootFlag(cmd, &root)
	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "JSON file with a symbol tree from a static-analysis tool")
	return cmd
}

func newRunsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			runs, err := a.archive.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}
			if opts.pretty {
				fmt.Fprint(cmd.OutOrStdout(), renderRuns(runs))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the envelope of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			run, err := a.archive.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var env service.Envelope
			if err := json.Unmarshal(run.Envelope, &env); err != nil {
				return fmt.Errorf("decoding archived envelope: %w", err)
			}
			if opts.pretty {
				fmt.Fprint(cmd.OutOrStdout(), renderEnvelope(&env))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), &env)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
