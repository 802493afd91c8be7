package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/testloop/internal/remedy"
	"github.com/vampirenirmal/testloop/internal/toolchain"
)

// DefaultMaxRetries is used when a caller passes a non-positive budget.
const DefaultMaxRetries = 3

// Step names emitted by the loop.
const (
	StepCompile = "compile_validation"
	StepExecute = "test_execution"
)

type State string

const (
	StateCompileAttempt State = "compile_attempt"
	StateCompileFailed  State = "compile_failed"
	StateCompileOk      State = "compile_ok"
	StateExecuteAttempt State = "execute_attempt"
	StateExecuteFailed  State = "execute_failed"
	StateExecuteOk      State = "execute_ok"
	StateAborted        State = "aborted"
)

// Transition is one visited state. Attempt is the zero-based attempt index
// within the current phase.
type Transition struct {
	State   State `json:"state"`
	Attempt int   `json:"attempt"`
}

func (t Transition) String() string {
	if t.State == StateCompileAttempt || t.State == StateExecuteAttempt {
		return fmt.Sprintf("%s(%d)", t.State, t.Attempt)
	}
	return string(t.State)
}

// Attempt records one toolchain invocation and the remediation that followed.
type Attempt struct {
	Attempt     int         `json:"attempt"`
	ExitCode    int         `json:"exit_code"`
	Error       string      `json:"error,omitempty"`
	Remediation *remedy.Fix `json:"remediation,omitempty"`
}

type CompileResult struct {
	Retries  int       `json:"retries"`
	Message  string    `json:"message"`
	Attempts []Attempt `json:"attempts"`
}

type ExecuteResult struct {
	Retries     int       `json:"retries"`
	PassedTests int       `json:"passed_tests"`
	FailedTests int       `json:"failed_tests"`
	Attempts    []Attempt `json:"attempts"`
}

// Outcome is the terminal result of a loop run. Err is nil on success and a
// *PhaseError otherwise.
type Outcome struct {
	Success bool         `json:"success"`
	State   State        `json:"state"`
	Trace   []Transition `json:"trace"`
	Steps   []Step       `json:"steps"`
	Err     error        `json:"-"`
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

func WithCompilePolicy(p *remedy.Policy) LoopOption {
	return func(l *Loop) { l.compilePolicy = p }
}

func WithExecutePolicy(p *remedy.Policy) LoopOption {
	return func(l *Loop) { l.executePolicy = p }
}

// WithDefaultModule sets the module used for test paths without a directory.
func WithDefaultModule(module string) LoopOption {
	return func(l *Loop) { l.defaultModule = module }
}

func WithDefaultRetries(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.defaultRetries = n
		}
	}
}

func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// Loop drives compile, execute and remediation for a test document kept in
// storage. A Loop holds no per-run state and may be shared, but only one run
// may own a given test path at a time.
type Loop struct {
	toolchain      Toolchain
	storage        Storage
	compilePolicy  *remedy.Policy
	executePolicy  *remedy.Policy
	defaultModule  string
	defaultRetries int
	logger         *slog.Logger
}

func NewLoop(tc Toolchain, storage Storage, opts ...LoopOption) *Loop {
	l := &Loop{
		toolchain:      tc,
		storage:        storage,
		compilePolicy:  remedy.CompilePolicy(),
		executePolicy:  remedy.ExecutePolicy(),
		defaultModule:  "app",
		defaultRetries: DefaultMaxRetries,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("component", "validation_loop")
	return l
}

// Run validates testPath on a fresh report.
func (l *Loop) Run(ctx context.Context, testPath string, maxRetries int) Outcome {
	return l.RunInto(ctx, NewReport(), testPath, maxRetries)
}

// RunInto validates testPath, appending its steps to report. The returned
// outcome carries every step of report.
func (l *Loop) RunInto(ctx context.Context, report *Report, testPath string, maxRetries int) Outcome {
	if maxRetries <= 0 {
		maxRetries = l.defaultRetries
	}
	r := &run{
		loop:       l,
		report:     report,
		testPath:   testPath,
		module:     toolchain.ModuleOf(testPath, l.defaultModule),
		testClass:  toolchain.TestClassOf(testPath),
		maxRetries: maxRetries,
	}

	l.logger.Info("validation started",
		"test_path", testPath,
		"module", r.module,
		"max_retries", maxRetries)

	out := r.execute(ctx)
	out.Steps = report.Steps()

	l.logger.Info("validation finished",
		"test_path", testPath,
		"success", out.Success,
		"state", out.State)

	return out
}

// run is the state of one loop invocation.
type run struct {
	loop       *Loop
	report     *Report
	testPath   string
	module     string
	testClass  string
	maxRetries int
	trace      []Transition
}

func (r *run) enter(state State, attempt int) {
	r.trace = append(r.trace, Transition{State: state, Attempt: attempt})
}

func (r *run) abort(err error) Outcome {
	r.enter(StateAborted, 0)
	return Outcome{State: StateAborted, Trace: r.trace, Err: err}
}

func (r *run) execute(ctx context.Context) Outcome {
	compiled, err := r.compilePhase(ctx)
	if err != nil {
		return r.abort(err)
	}
	r.enter(StateCompileOk, compiled)

	if _, err := r.executePhase(ctx); err != nil {
		return r.abort(err)
	}
	r.enter(StateExecuteOk, 0)

	return Outcome{Success: true, State: StateExecuteOk, Trace: r.trace}
}

// phase describes the parts that differ between compile and execute.
type phase struct {
	step      string
	attempt   State
	failed    State
	class     error
	policy    *remedy.Policy
	invoke    func(ctx context.Context) (toolchain.Result, error)
	diagnose  func(res toolchain.Result, err error) string
	attempts  *[]Attempt
	resultFor func(retries int) any
}

func (r *run) compilePhase(ctx context.Context) (int, error) {
	result := &CompileResult{}
	p := phase{
		step:    StepCompile,
		attempt: StateCompileAttempt,
		failed:  StateCompileFailed,
		class:   ErrCompileFailure,
		policy:  r.loop.compilePolicy,
		invoke: func(ctx context.Context) (toolchain.Result, error) {
			return r.loop.toolchain.Compile(ctx, r.module, r.testPath)
		},
		diagnose: compileFailure,
		attempts: &result.Attempts,
		resultFor: func(retries int) any {
			result.Retries = retries
			return result
		},
	}

	h := r.report.Begin(StepCompile, fmt.Sprintf("Compiling %s in module %s", r.testPath, r.module))
	retries, _, err := r.runPhase(ctx, p, h)
	if err != nil {
		return retries, err
	}
	result.Message = "Test compiled successfully"
	h.Complete(result.Message, p.resultFor(retries))
	return retries, nil
}

func (r *run) executePhase(ctx context.Context) (int, error) {
	result := &ExecuteResult{}
	p := phase{
		step:    StepExecute,
		attempt: StateExecuteAttempt,
		failed:  StateExecuteFailed,
		class:   ErrExecuteFailure,
		policy:  r.loop.executePolicy,
		invoke: func(ctx context.Context) (toolchain.Result, error) {
			return r.loop.toolchain.Run(ctx, r.module, r.testClass)
		},
		diagnose: executeFailure,
		attempts: &result.Attempts,
		resultFor: func(retries int) any {
			result.Retries = retries
			return result
		},
	}

	h := r.report.Begin(StepExecute, fmt.Sprintf("Running %s in module %s", r.testClass, r.module))
	retries, res, err := r.runPhase(ctx, p, h)
	counts := toolchain.ParseCounts(res.Output())
	result.PassedTests = counts.Passed
	result.FailedTests = counts.Failed
	if err != nil {
		return retries, err
	}
	h.Complete(fmt.Sprintf("%d tests passed", counts.Passed), p.resultFor(retries))
	return retries, nil
}

// runPhase performs attempts until one succeeds, the retry budget is spent,
// or remediation finds nothing to fix. It returns the retries consumed and
// the last toolchain result. On failure the step is already marked failed.
func (r *run) runPhase(ctx context.Context, p phase, h *StepHandle) (int, toolchain.Result, error) {
	logger := r.loop.logger.With("phase", p.step, "test_path", r.testPath)

	for n := 0; ; n++ {
		r.enter(p.attempt, n)
		logger.Info("attempt started", "attempt", n+1, "max_retries", r.maxRetries)

		res, runErr := p.invoke(ctx)
		failure := p.diagnose(res, runErr)

		att := Attempt{Attempt: n + 1, ExitCode: res.ExitCode}
		if failure == "" {
			*p.attempts = append(*p.attempts, att)
			logger.Info("attempt succeeded", "attempt", n+1)
			return n, res, nil
		}
		att.Error = failure
		logger.Warn("attempt failed", "attempt", n+1, "exit_code", res.ExitCode)

		if n+1 >= r.maxRetries {
			*p.attempts = append(*p.attempts, att)
			r.enter(p.failed, n)
			h.Fail(failure, p.resultFor(n))
			return n, res, NewPhaseError(p.step, n+1, p.class, ErrRetryBudgetExhausted)
		}

		fix, err := r.remediate(ctx, p.policy, failure)
		if err != nil {
			*p.attempts = append(*p.attempts, att)
			h.Fail(err.Error(), p.resultFor(n))
			return n, res, &PhaseError{Phase: p.step, Attempt: n + 1, Cause: err}
		}
		att.Remediation = &fix
		*p.attempts = append(*p.attempts, att)

		if !fix.Fixed {
			logger.Warn("no remediation rule matched", "attempt", n+1)
			h.Fail(failure, p.resultFor(n))
			return n, res, NewPhaseError(p.step, n+1, p.class, ErrRemediationExhausted)
		}
		logger.Info("remediation applied", "attempt", n+1, "rules", fix.Rules)
	}
}

// remediate applies policy to the stored test document and writes it back
// when the text changed.
func (r *run) remediate(ctx context.Context, policy *remedy.Policy, failure string) (remedy.Fix, error) {
	data, err := r.loop.storage.Load(ctx, r.testPath)
	if err != nil {
		return remedy.Fix{}, fmt.Errorf("%w: reading %s: %w", ErrDocumentIO, r.testPath, err)
	}
	text := string(data)

	fix := policy.AttemptFix(text, failure)
	if fix.Fixed && fix.Text != text {
		if err := r.loop.storage.Save(ctx, r.testPath, []byte(fix.Text)); err != nil {
			return remedy.Fix{}, fmt.Errorf("%w: writing %s: %w", ErrDocumentIO, r.testPath, err)
		}
	}
	return fix, nil
}

func compileFailure(res toolchain.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	if res.Succeeded() && !toolchain.HasCompileError(res.Stderr) {
		return ""
	}
	return describeFailure(res, res.Output())
}

func executeFailure(res toolchain.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	out := res.Output()
	if res.Succeeded() && toolchain.ParseCounts(out).Failed == 0 {
		return ""
	}
	return describeFailure(res, out)
}

func describeFailure(res toolchain.Result, out string) string {
	if out == "" {
		return fmt.Sprintf("%s exited with status %d", res.Command, res.ExitCode)
	}
	return toolchain.Tail(out)
}
