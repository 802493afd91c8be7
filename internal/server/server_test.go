package server

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/testloop/internal/service"
	"github.com/vampirenirmal/testloop/internal/standards"
)

type recordingOps struct {
	generate   []service.GenerateRequest
	validate   []service.ValidateRequest
	analyze    []service.AnalyzeRequest
	integrated int
	result     *service.Envelope
}

func (r *recordingOps) GenerateUnitTest(ctx context.Context, req service.GenerateRequest) *service.Envelope {
	r.generate = append(r.generate, req)
	return r.result
}

func (r *recordingOps) GenerateIntegrationTest(ctx context.Context, req service.GenerateRequest) *service.Envelope {
	r.integrated++
	r.generate = append(r.generate, req)
	return r.result
}

func (r *recordingOps) ValidateTest(ctx context.Context, req service.ValidateRequest) *service.Envelope {
	r.validate = append(r.validate, req)
	return r.result
}

func (r *recordingOps) AnalyzeService(ctx context.Context, req service.AnalyzeRequest) *service.Envelope {
	r.analyze = append(r.analyze, req)
	return r.result
}

func findTool(t *testing.T, s *Server, name string) tool {
	t.Helper()
	for _, tl := range s.tools() {
		if tl.def.Name == name {
			return tl
		}
	}
	t.Fatalf("tool %s not registered", name)
	return tool{}
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := findTool(t, s, name).handle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestTools_Registered(t *testing.T) {
	s := New(&recordingOps{}, nil)

	var names []string
	for _, tl := range s.tools() {
		names = append(names, tl.def.Name)
	}
	assert.Equal(t, []string{
		service.OpGenerateUnitTest,
		service.OpGenerateIntegrationTest,
		service.OpValidateTest,
		service.OpAnalyzeService,
	}, names)

	def := findTool(t, s, service.OpValidateTest).def
	assert.ElementsMatch(t, []string{"project_root", "test_path"}, def.InputSchema.Required)
}

func TestGenerateUnitTest_DecodesArguments(t *testing.T) {
	ops := &recordingOps{result: &service.Envelope{Success: true, Operation: service.OpGenerateUnitTest}}
	s := New(ops, nil)

	res := call(t, s, service.OpGenerateUnitTest, map[string]any{
		"project_root":    "/work/shop",
		"service_path":    "domainA/src/main/kotlin/FooServiceImpl.kt",
		"serena_analysis": map[string]any{"name": "FooServiceImpl", "children": []any{}},
		"validate":        false,
		"max_retries":     float64(2),
	})

	assert.False(t, res.IsError)
	require.Len(t, ops.generate, 1)
	req := ops.generate[0]
	assert.Equal(t, "/work/shop", req.ProjectRoot)
	assert.Equal(t, 2, req.MaxRetries)
	require.NotNil(t, req.Validate)
	assert.False(t, *req.Validate)
	assert.JSONEq(t, `{"name":"FooServiceImpl","children":[]}`, string(req.SerenaAnalysis))

	var env service.Envelope
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &env))
	assert.True(t, env.Success)
}

func TestIntegrationTool_UsesIntegrationOperation(t *testing.T) {
	ops := &recordingOps{result: &service.Envelope{Success: true}}
	s := New(ops, nil)

	call(t, s, service.OpGenerateIntegrationTest, map[string]any{
		"project_root": "/work/shop",
		"service_path": "Foo.kt",
	})

	assert.Equal(t, 1, ops.integrated)
	require.Len(t, ops.generate, 1)
	assert.Nil(t, ops.generate[0].Validate)
}

func TestFailedEnvelopeIsToolError(t *testing.T) {
	ops := &recordingOps{result: &service.Envelope{Success: false, Error: "phase compile_validation failed"}}
	s := New(ops, nil)

	res := call(t, s, service.OpValidateTest, map[string]any{
		"project_root": "/work/shop",
		"test_path":    "m/src/test/FooTest.kt",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "phase compile_validation failed")
	require.Len(t, ops.validate, 1)
}

func TestMalformedArgumentsAreRejected(t *testing.T) {
	ops := &recordingOps{}
	s := New(ops, nil)

	res := call(t, s, service.OpAnalyzeService, map[string]any{
		"project_root": 42,
		"service_path": "Foo.kt",
	})

	assert.True(t, res.IsError)
	assert.Empty(t, ops.analyze)
}

func TestReadStandard(t *testing.T) {
	cache := standards.New(fstest.MapFS{
		"TEST_STANDARDS.md": {Data: []byte("# Standards")},
	})
	s := New(&recordingOps{}, cache)

	var req mcp.ReadResourceRequest
	req.Params.URI = standards.TestStandards.URI

	contents, err := s.readStandard(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	rc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "# Standards", rc.Text)
	assert.Equal(t, "text/markdown", rc.MIMEType)

	req.Params.URI = "standards://nope"
	_, err = s.readStandard(context.Background(), req)
	assert.Error(t, err)
}

func TestMCPServerBuilds(t *testing.T) {
	s := New(&recordingOps{}, standards.New(fstest.MapFS{}))
	assert.NotNil(t, s.MCPServer("test"))
}
