package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// GradleOptions configures how Gradle is invoked.
type GradleOptions struct {
	Command       string
	CompileTask   string
	TestTask      string
	CoverageTask  string
	ExcludedTasks []string
	Env           map[string]string
	// Timeout bounds a single invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// DefaultGradleOptions returns the Kotlin/kapt setup the scaffolds target.
func DefaultGradleOptions() GradleOptions {
	return GradleOptions{
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
	}
}

// Gradle runs Gradle tasks inside a project directory.
type Gradle struct {
	projectRoot string
	opts        GradleOptions
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option customizes a Gradle runner.
type Option func(*Gradle)

// NewLimiter allows launchesPerMinute process launches with the given
// burst. Non-positive values disable throttling.
func NewLimiter(launchesPerMinute, burst int) *rate.Limiter {
	if launchesPerMinute <= 0 || burst <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(launchesPerMinute)/60.0), burst)
}

// WithLimiter shares one limiter between runners.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Gradle) {
		if l != nil {
			g.limiter = l
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gradle) {
		g.logger = logger
	}
}

// NewGradle creates a runner rooted at projectRoot.
func NewGradle(projectRoot string, opts GradleOptions, options ...Option) *Gradle {
	g := &Gradle{
		projectRoot: projectRoot,
		opts:        opts,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      slog.Default().With("component", "gradle"),
	}
	for _, o := range options {
		o(g)
	}
	return g
}

// Compile compiles the test sources of module. Gradle compiles per module, so
// testFile is only recorded for logging.
func (g *Gradle) Compile(ctx context.Context, module, testFile string) (Result, error) {
	g.logger.Debug("compiling tests", "module", module, "test_file", testFile)
	return g.run(ctx, g.compileArgs(module))
}

// Run executes a single test class within module.
func (g *Gradle) Run(ctx context.Context, module, testClass string) (Result, error) {
	g.logger.Debug("running tests", "module", module, "test_class", testClass)
	return g.run(ctx, g.testArgs(module, testClass))
}

// Coverage produces the module's coverage report.
func (g *Gradle) Coverage(ctx context.Context, module string) (Result, error) {
	g.logger.Debug("building coverage report", "module", module)
	return g.run(ctx, g.coverageArgs(module))
}

func (g *Gradle) compileArgs(module string) []string {
	return g.withExclusions([]string{task(module, g.opts.CompileTask)})
}

func (g *Gradle) testArgs(module, testClass string) []string {
	return g.withExclusions([]string{task(module, g.opts.TestTask), "--tests", testClass})
}

func (g *Gradle) coverageArgs(module string) []string {
	return g.withExclusions([]string{task(module, g.opts.CoverageTask)})
}

func (g *Gradle) withExclusions(args []string) []string {
	for _, t := range g.opts.ExcludedTasks {
		args = append(args, "-x", t)
	}
	return args
}

func task(module, name string) string {
	return fmt.Sprintf(":%s:%s", module, name)
}

func (g *Gradle) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(g.opts.Env))
	for k := range g.opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+g.opts.Env[k])
	}
	return env
}

func (g *Gradle) run(ctx context.Context, args []string) (Result, error) {
	command := joinArgs(g.opts.Command, args)
	result := Result{Command: command, ExitCode: -1}

	if err := g.limiter.Wait(ctx); err != nil {
		return result, &LaunchError{Command: command, Err: err}
	}

	runCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, g.opts.Command, args...)
	cmd.Dir = g.projectRoot
	cmd.Env = g.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if runCtx.Err() != nil {
		return result, &LaunchError{Command: command, Err: runCtx.Err()}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, &LaunchError{Command: command, Err: err}
	}

	g.logger.Info("toolchain finished",
		"command", command,
		"exit_code", result.ExitCode,
		"duration", result.Duration)

	return result, nil
}
