package service

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/testloop/internal/descriptor"
	"github.com/vampirenirmal/testloop/internal/storage"
	"github.com/vampirenirmal/testloop/internal/synth"
	"github.com/vampirenirmal/testloop/internal/toolchain"
)

// GenerateUnitTest writes a unit test scaffold and, unless disabled,
// validates it.
func (s *Service) GenerateUnitTest(ctx context.Context, req GenerateRequest) *Envelope {
	return s.generate(ctx, OpGenerateUnitTest, synth.FlavorUnit, req)
}

// GenerateIntegrationTest is GenerateUnitTest with the integration scaffold.
func (s *Service) GenerateIntegrationTest(ctx context.Context, req GenerateRequest) *Envelope {
	return s.generate(ctx, OpGenerateIntegrationTest, synth.FlavorIntegration, req)
}

func (s *Service) generate(ctx context.Context, name string, flavor synth.Flavor, req GenerateRequest) *Envelope {
	op := s.begin(ctx, name)
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

	testPath := req.TestPath
	if testPath == "" {
		testPath = toolchain.InferTestPath(servicePath)
	}
	testPath, err = root.Rel(testPath)
	if err != nil {
		return op.fail(ctx, fmt.Errorf("test path: %w", err))
	}
	op.env.TestPath = testPath

	d, fidelity, err := op.analyze(ctx, root, servicePath, req.SerenaAnalysis)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.env.Fidelity = fidelity

	syn, err := synth.New(flavor)
	if err != nil {
		return op.fail(ctx, err)
	}

	h := op.report.Begin(StepGenerate, fmt.Sprintf("Generating %s test code", flavor))
	doc := syn.Synthesize(d)
	if err := root.Save(ctx, testPath, []byte(doc.Text)); err != nil {
		err = fmt.Errorf("writing test file: %w", err)
		h.Fail(err.Error(), nil)
		return op.fail(ctx, err)
	}
	h.Complete(fmt.Sprintf("%d test cases written to %s", doc.CaseCount(), testPath), GenerateStepResult{
		TestFile:             testPath,
		TestMethodsGenerated: doc.CaseCount(),
	})
	op.logger.Info("test scaffold written", "test_path", testPath, "cases", doc.CaseCount())

	op.env.Success = true
	if req.validateEnabled() {
		if err := op.validate(ctx, root, testPath, req.MaxRetries, req.CheckCoverage); err != nil {
			return op.fail(ctx, err)
		}
	}
	return op.finish(ctx)
}

// analyze runs the analyze_service step. Structured symbol data wins over
// the service source.
func (op *operation) analyze(ctx context.Context, root *storage.FileSystem, servicePath string, symbols []byte) (descriptor.Descriptor, descriptor.Fidelity, error) {
	in := descriptor.Input{SourcePath: servicePath}

	sym, err := descriptor.ParseSymbol(symbols)
	if err != nil {
		h := op.report.Begin(StepAnalyze, "Analyzing service from structured symbol data")
		err = fmt.Errorf("parsing serena_analysis: %w", err)
		h.Fail(err.Error(), nil)
		return descriptor.Descriptor{}, "", err
	}
	in.Symbols = sym

	message := "Analyzing service from structured symbol data"
	if sym == nil {
		message = "Analyzing service source with the regex fallback; structured symbol data is more precise"
	}
	h := op.report.Begin(StepAnalyze, message)

	if sym == nil {
		src, err := root.Load(ctx, servicePath)
		if err != nil {
			err = fmt.Errorf("reading service file: %w", err)
			h.Fail(err.Error(), nil)
			return descriptor.Descriptor{}, "", err
		}
		in.Source = string(src)
	}

	d, fidelity := descriptor.Extract(in, op.svc.extraction)
	h.Complete(fmt.Sprintf("%d methods found", len(d.Methods)), AnalyzeStepResult{
		Fidelity:          fidelity,
		MethodsFound:      len(d.Methods),
		DependenciesFound: len(d.Dependencies),
	})
	if fidelity.Degraded() {
		op.logger.Warn("structured symbol data absent, using regex extraction", "service_path", servicePath)
	}
	return d, fidelity, nil
}
