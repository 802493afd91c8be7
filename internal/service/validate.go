package service

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/testloop/internal/core"
	"github.com/vampirenirmal/testloop/internal/storage"
	"github.com/vampirenirmal/testloop/internal/toolchain"
)

// ValidateTest runs the validation loop on an existing test file and, when
// asked and the loop succeeded, builds a coverage report.
func (s *Service) ValidateTest(ctx context.Context, req ValidateRequest) *Envelope {
	op := s.begin(ctx, OpValidateTest)
	op.env.TestPath = req.TestPath

	if err := s.validate.Struct(req); err != nil {
		return op.fail(ctx, fmt.Errorf("invalid request: %w", err))
	}

	root := storage.NewFileSystem(req.ProjectRoot)
	testPath, err := root.Rel(req.TestPath)
	if err != nil {
		return op.fail(ctx, fmt.Errorf("test path: %w", err))
	}
	op.env.TestPath = testPath

	if !root.Exists(ctx, testPath) {
		return op.fail(ctx, fmt.Errorf("test file %s not found under %s", testPath, root.Root()))
	}

	if err := op.validate(ctx, root, testPath, req.MaxRetries, req.CheckCoverage); err != nil {
		return op.fail(ctx, err)
	}
	return op.finish(ctx)
}

// validate appends the loop's steps to the operation and records its result.
// Only failures of the project storage are returned; toolchain failures are
// part of the report.
func (op *operation) validate(ctx context.Context, root *storage.FileSystem, testPath string, maxRetries int, checkCoverage bool) error {
	tc := op.svc.toolchains(root.Root())
	loop := op.svc.newLoop(tc, root)

	out := loop.RunInto(ctx, op.report, testPath, op.svc.budget(maxRetries))
	if core.IsDocumentIO(out.Err) {
		return out.Err
	}
	op.env.Success = out.Success
	if out.Err != nil {
		op.env.Error = out.Err.Error()
	}

	if checkCoverage && out.Success {
		op.env.Coverage = op.coverage(ctx, tc, testPath)
	}
	return nil
}

func (op *operation) coverage(ctx context.Context, tc core.Toolchain, testPath string) *Coverage {
	module := toolchain.ModuleOf(testPath, op.svc.defaultModule)

	res, err := tc.Coverage(ctx, module)
	switch {
	case err != nil:
		return &Coverage{Error: err.Error()}
	case !res.Succeeded():
		msg := toolchain.Tail(res.Output())
		if msg == "" {
			msg = fmt.Sprintf("%s exited with status %d", res.Command, res.ExitCode)
		}
		return &Coverage{Error: msg}
	}

	return &Coverage{
		Success:    true,
		ReportPath: toolchain.CoverageReportPath(module, op.svc.coverageReport),
	}
}
