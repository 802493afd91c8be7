package service

import "encoding/json"

// GenerateRequest asks for a test scaffold for one service file.
type GenerateRequest struct {
	ProjectRoot    string          `json:"project_root" validate:"required"`
	ServicePath    string          `json:"service_path" validate:"required"`
	SerenaAnalysis json.RawMessage `json:"serena_analysis,omitempty"`
	TestPath       string          `json:"test_path,omitempty"`
	// Validate defaults to true when nil.
	Validate      *bool `json:"validate,omitempty"`
	// MaxRetries of zero or less selects the configured budget.
	MaxRetries    int   `json:"max_retries,omitempty"`
	CheckCoverage bool  `json:"check_coverage,omitempty"`
}

func (r GenerateRequest) validateEnabled() bool {
	return r.Validate == nil || *r.Validate
}

// ValidateRequest asks for an existing test file to be validated.
type ValidateRequest struct {
	ProjectRoot   string `json:"project_root" validate:"required"`
	TestPath      string `json:"test_path" validate:"required"`
	MaxRetries    int    `json:"max_retries,omitempty"`
	CheckCoverage bool   `json:"check_coverage,omitempty"`
}

type AnalyzeRequest struct {
	ProjectRoot    string          `json:"project_root" validate:"required"`
	ServicePath    string          `json:"service_path" validate:"required"`
	SerenaAnalysis json.RawMessage `json:"serena_analysis,omitempty"`
}
