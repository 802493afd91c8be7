package core_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/testloop/internal/core"
)

func TestReport_TerminalStepsDoNotChange(t *testing.T) {
	r := core.NewReport()
	h := r.Begin("compile_validation", "Compiling")

	h.Fail("boom", nil)
	h.Complete("done", map[string]int{"retries": 0})

	steps := r.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, core.StatusFailed, steps[0].Status)
	assert.Equal(t, "boom", steps[0].Error)
	assert.Equal(t, "Compiling", steps[0].Message)
	assert.True(t, r.Failed())
}

func TestReport_MarshalsAsStepList(t *testing.T) {
	r := core.NewReport()
	r.Begin("analyze_service", "Analyzing").Complete("1 methods found", map[string]int{"methods_found": 1})
	r.Begin("generate_test_code", "Generating")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var steps []map[string]any
	require.NoError(t, json.Unmarshal(data, &steps))
	require.Len(t, steps, 2)
	assert.Equal(t, "completed", steps[0]["status"])
	assert.Equal(t, "in_progress", steps[1]["status"])
	assert.EqualValues(t, 2, steps[1]["step"])
	assert.False(t, r.Failed())
}
