// Package service implements the test generation and validation operations
// exposed over MCP and the command line. Every operation returns an Envelope;
// failures inside the validation loop are reported, not returned as errors.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vampirenirmal/testloop/internal/core"
	"github.com/vampirenirmal/testloop/internal/descriptor"
	"github.com/vampirenirmal/testloop/internal/standards"
)

// Operation names, shared with the MCP tool names.
const (
	OpGenerateUnitTest        = "generate_unit_test"
	OpGenerateIntegrationTest = "generate_integration_test"
	OpValidateTest            = "validate_test"
	OpAnalyzeService          = "analyze_service"
)

// Step names emitted before the validation loop.
const (
	StepAnalyze  = "analyze_service"
	StepGenerate = "generate_test_code"
)

// ToolchainFactory returns the toolchain for a project root.
type ToolchainFactory func(projectRoot string) core.Toolchain

// Envelope is the result of one operation.
type Envelope struct {
	Success     bool                `json:"success"`
	RunID       string              `json:"run_id,omitempty"`
	Operation   string              `json:"operation"`
	DurationMS  int64               `json:"duration_ms"`
	ServicePath string              `json:"service_path,omitempty"`
	TestPath    string              `json:"test_path,omitempty"`
	Fidelity    descriptor.Fidelity `json:"fidelity,omitempty"`
	Message     string              `json:"message,omitempty"`
	Analysis    *Analysis           `json:"analysis,omitempty"`
	Steps       []core.Step         `json:"steps,omitempty"`
	Coverage    *Coverage           `json:"coverage,omitempty"`
	Error       string              `json:"error,omitempty"`
	Stack       string              `json:"stack,omitempty"`
}

// Analysis is the descriptor as reported by analyze_service.
type Analysis struct {
	ClassName    string                  `json:"className"`
	PackageName  string                  `json:"packageName"`
	Methods      []descriptor.Method     `json:"methods"`
	Dependencies []descriptor.Dependency `json:"dependencies"`
	Imports      []string                `json:"imports"`
}

type Coverage struct {
	Success    bool   `json:"success"`
	ReportPath string `json:"report_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AnalyzeStepResult is the result of the analyze_service step.
type AnalyzeStepResult struct {
	Fidelity          descriptor.Fidelity `json:"fidelity"`
	MethodsFound      int                 `json:"methods_found"`
	DependenciesFound int                 `json:"dependencies_found"`
}

// GenerateStepResult is the result of the generate_test_code step.
type GenerateStepResult struct {
	TestFile             string `json:"test_file"`
	TestMethodsGenerated int    `json:"test_methods_generated"`
}

// Service runs operations against projects on the local file system.
type Service struct {
	toolchains     ToolchainFactory
	archive        *core.Archive
	standards      *standards.Cache
	extraction     descriptor.Options
	defaultModule  string
	maxRetries     int
	coverageReport string
	validate       *validator.Validate
	baseLogger     *slog.Logger
	logger         *slog.Logger
}

type Option func(*Service)

// WithArchive records every envelope in archive.
func WithArchive(archive *core.Archive) Option {
	return func(s *Service) { s.archive = archive }
}

func WithStandards(cache *standards.Cache) Option {
	return func(s *Service) { s.standards = cache }
}

func WithExtraction(opts descriptor.Options) Option {
	return func(s *Service) { s.extraction = opts }
}

func WithDefaultModule(module string) Option {
	return func(s *Service) { s.defaultModule = module }
}

// WithMaxRetries sets the budget used when a request leaves it unset.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithCoverageReport sets the report location relative to a module.
func WithCoverageReport(path string) Option {
	return func(s *Service) { s.coverageReport = path }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(toolchains ToolchainFactory, opts ...Option) *Service {
	s := &Service{
		toolchains:     toolchains,
		extraction:     descriptor.DefaultOptions(),
		defaultModule:  "olive-domain",
		maxRetries:     core.DefaultMaxRetries,
		coverageReport: "build/reports/jacoco/test/html/index.html",
		validate:       validator.New(),
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.baseLogger = s.logger
	s.logger = s.logger.With("component", "service")
	return s
}

// operation tracks one envelope while it is being built.
type operation struct {
	svc    *Service
	start  time.Time
	env    *Envelope
	report *core.Report
	logger *slog.Logger
}

func (s *Service) begin(ctx context.Context, name string) *operation {
	if s.standards != nil {
		s.standards.Load(ctx)
	}
	return &operation{
		svc:    s,
		start:  time.Now(),
		env:    &Envelope{Operation: name},
		report: core.NewReport(),
		logger: s.logger.With("operation", name),
	}
}

// fail ends the operation with an operation-level error.
func (op *operation) fail(ctx context.Context, err error) *Envelope {
	err = errors.WithStack(err)
	op.env.Success = false
	op.env.Error = err.Error()
	op.env.Stack = fmt.Sprintf("%+v", err)
	op.logger.Error("operation failed", "error", op.env.Error)
	return op.finish(ctx)
}

func (op *operation) finish(ctx context.Context) *Envelope {
	op.env.Steps = op.report.Steps()
	op.env.DurationMS = time.Since(op.start).Milliseconds()

	if op.svc.archive != nil {
		op.env.RunID = core.NewRunID()
		if err := op.archive(ctx); err != nil {
			op.logger.Warn("failed to archive run", "run_id", op.env.RunID, "error", err)
		}
	}

	op.logger.Info("operation finished",
		"success", op.env.Success,
		"run_id", op.env.RunID,
		"duration_ms", op.env.DurationMS)
	return op.env
}

func (op *operation) archive(ctx context.Context) error {
	data, err := json.Marshal(op.env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	target := op.env.TestPath
	if target == "" {
		target = op.env.ServicePath
	}
	return op.svc.archive.Save(ctx, &core.Run{
		ID:        op.env.RunID,
		Operation: op.env.Operation,
		Target:    target,
		Success:   op.env.Success,
		Envelope:  data,
	})
}

func (s *Service) budget(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.maxRetries
}

func (s *Service) newLoop(tc core.Toolchain, store core.Storage) *core.Loop {
	return core.NewLoop(tc, store,
		core.WithDefaultModule(s.defaultModule),
		core.WithDefaultRetries(s.maxRetries),
		core.WithLoopLogger(s.baseLogger))
}
