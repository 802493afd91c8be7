package service

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/testloop/internal/storage"
)

// importsReported caps the imports listed by AnalyzeService.
const importsReported = 10

// AnalyzeService extracts and reports a service descriptor without writing
// anything.
func (s *Service) AnalyzeService(ctx context.Context, req AnalyzeRequest) *Envelope {
	op := s.begin(ctx, OpAnalyzeService)
	op.env.ServicePath = req.ServicePath

	if err := s.validate.Struct(req); err != nil {
		return op.fail(ctx, fmt.Errorf("invalid request: %w", err))
	}

	root := storage.NewFileSystem(req.ProjectRoot)
	servicePath, err := root.Rel(req.ServicePath)
	if err != nil {
		return op.fail(ctx, fmt.Errorf("service path: %w", err))
	}
	op.env.ServicePath = servicePath

	d, fidelity, err := op.analyze(ctx, root, servicePath, req.SerenaAnalysis)
	if err != nil {
		return op.fail(ctx, err)
	}

	op.env.Success = true
	op.env.Fidelity = fidelity
	op.env.Analysis = &Analysis{
		ClassName:    d.ClassName,
		PackageName:  d.PackageName,
		Methods:      d.Methods,
		Dependencies: d.Dependencies,
		Imports:      d.TopImports(importsReported),
	}
	op.env.Message = fmt.Sprintf("Service analysis complete: %d methods found", len(d.Methods))
	return op.finish(ctx)
}
