package cli

import (
	"io"
	"log/slog"

	"github.com/vampirenirmal/testloop/internal/config"
	"github.com/vampirenirmal/testloop/internal/core"
	"github.com/vampirenirmal/testloop/internal/descriptor"
	"github.com/vampirenirmal/testloop/internal/service"
	"github.com/vampirenirmal/testloop/internal/standards"
	"github.com/vampirenirmal/testloop/internal/storage"
	"github.com/vampirenirmal/testloop/internal/toolchain"
)

// app holds the wired components shared by commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	archive   *core.Archive
	standards *standards.Cache
	service   *service.Service
}

func newApp(cfg *config.Config, logOut io.Writer) *app {
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)

	tc := cfg.Toolchain
	gradle := toolchain.GradleOptions{
		Command:       tc.Command,
		CompileTask:   tc.CompileTask,
		TestTask:      tc.TestTask,
		CoverageTask:  tc.CoverageTask,
		ExcludedTasks: tc.ExcludedTasks,
		Env:           tc.Env,
		Timeout:       tc.Timeout,
	}
	// One limiter for every project so parallel validations share the budget.
	limits := cfg.Limits.RateLimit
	limiter := toolchain.NewLimiter(limits.LaunchesPerMinute, limits.BurstSize)

	toolchains := func(projectRoot string) core.Toolchain {
		return toolchain.NewGradle(projectRoot, gradle,
			toolchain.WithLimiter(limiter),
			toolchain.WithLogger(logger.With("component", "gradle", "project_root", projectRoot)))
	}

	archive := core.NewArchive(storage.NewFileSystem(cfg.Paths.DataDir))
	cache := standards.NewDir(cfg.Paths.StandardsDir, standards.WithLogger(logger))

	svc := service.New(toolchains,
		service.WithArchive(archive),
		service.WithStandards(cache),
		service.WithExtraction(descriptor.Options{SourceRoots: cfg.Extraction.SourceRoots}),
		service.WithDefaultModule(tc.DefaultModule),
		service.WithMaxRetries(cfg.Limits.MaxRetries),
		service.WithCoverageReport(tc.CoverageReport),
		service.WithLogger(logger),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		archive:   archive,
		standards: cache,
		service:   svc,
	}
}
