package core

import (
	"encoding/json"
	"sync"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a step in this status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is one entry of a run report.
type Step struct {
	Step    int    `json:"step"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report is the ordered list of steps taken by one operation. Ordinals are
// assigned in the order steps begin, starting at 1.
type Report struct {
	mu    sync.Mutex
	steps []*Step
}

func NewReport() *Report {
	return &Report{}
}

// StepHandle updates a step that was begun on a report.
type StepHandle struct {
	report *Report
	step   *Step
}

// Begin appends an in-progress step.
func (r *Report) Begin(name, message string) *StepHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Step{
		Step:    len(r.steps) + 1,
		Name:    name,
		Status:  StatusInProgress,
		Message: message,
	}
	r.steps = append(r.steps, s)
	return &StepHandle{report: r, step: s}
}

// Complete marks the step completed. Terminal steps are left untouched.
func (h *StepHandle) Complete(message string, result any) {
	h.finish(StatusCompleted, message, result, "")
}

// Fail marks the step failed with errMsg. Terminal steps are left untouched.
func (h *StepHandle) Fail(errMsg string, result any) {
	h.finish(StatusFailed, "", result, errMsg)
}

func (h *StepHandle) finish(status Status, message string, result any, errMsg string) {
	h.report.mu.Lock()
	defer h.report.mu.Unlock()

	if h.step.Status.Terminal() {
		return
	}
	h.step.Status = status
	if message != "" {
		h.step.Message = message
	}
	h.step.Result = result
	h.step.Error = errMsg
}

// Steps returns a copy of the steps in order.
func (r *Report) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Step, len(r.steps))
	for i, s := range r.steps {
		out[i] = *s
	}
	return out
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps() {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Steps())
}
