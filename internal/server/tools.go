package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vampirenirmal/testloop/internal/core"
	"github.com/vampirenirmal/testloop/internal/service"
)

type tool struct {
	def    mcp.Tool
	handle server.ToolHandlerFunc
}

func (s *Server) tools() []tool {
	return []tool{
		{
			def: mcp.NewTool(service.OpGenerateUnitTest,
				mcp.WithDescription("Generate a unit test for a service class, then compile and run it, "+
					"applying known fixes between attempts."),
				projectRootArg(),
				servicePathArg(),
				serenaAnalysisArg(),
				testPathArg("Where to write the test, relative to project_root. Defaults to the service path mirrored into src/test with a Test suffix."),
				validateArg(),
				maxRetriesArg(),
				checkCoverageArg(),
			),
			handle: handle(s, s.ops.GenerateUnitTest),
		},
		{
			def: mcp.NewTool(service.OpGenerateIntegrationTest,
				mcp.WithDescription("Generate a Spring integration test for a service class and validate it like generate_unit_test."),
				projectRootArg(),
				servicePathArg(),
				serenaAnalysisArg(),
				testPathArg("Where to write the test, relative to project_root."),
				validateArg(),
				maxRetriesArg(),
				checkCoverageArg(),
			),
			handle: handle(s, s.ops.GenerateIntegrationTest),
		},
		{
			def: mcp.NewTool(service.OpValidateTest,
				mcp.WithDescription("Validate an existing test file: compile, run, fix and retry."),
				projectRootArg(),
				mcp.WithString("test_path",
					mcp.Required(),
					mcp.Description("Test file to validate, relative to project_root."),
				),
				maxRetriesArg(),
				checkCoverageArg(),
			),
			handle: handle(s, s.ops.ValidateTest),
		},
		{
			def: mcp.NewTool(service.OpAnalyzeService,
				mcp.WithDescription("Report the methods, constructor dependencies and imports of a service class."),
				projectRootArg(),
				servicePathArg(),
				serenaAnalysisArg(),
			),
			handle: handle(s, s.ops.AnalyzeService),
		},
	}
}

// handle adapts an operation to a tool handler.
func handle[R any](s *Server, op func(context.Context, R) *service.Envelope) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r R
		if err := bindArguments(req, &r); err != nil {
			s.logger.Warn("rejected tool call", "tool", req.Params.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Debug("tool call", "tool", req.Params.Name)
		return envelopeResult(op(ctx, r))
	}
}

func projectRootArg() mcp.ToolOption {
	return mcp.WithString("project_root",
		mcp.Required(),
		mcp.Description("Absolute path of the project root."),
	)
}

func servicePathArg() mcp.ToolOption {
	return mcp.WithString("service_path",
		mcp.Required(),
		mcp.Description("Service source file, relative to project_root."),
	)
}

func serenaAnalysisArg() mcp.ToolOption {
	return mcp.WithObject("serena_analysis",
		mcp.Description("Optional symbol tree {name, kind, detail, children} from a static-analysis tool."),
	)
}

func testPathArg(desc string) mcp.ToolOption {
	return mcp.WithString("test_path", mcp.Description(desc))
}

func validateArg() mcp.ToolOption {
	return mcp.WithBoolean("validate",
		mcp.Description("Compile and run the generated test."),
		mcp.DefaultBool(true),
	)
}

func maxRetriesArg() mcp.ToolOption {
	return mcp.WithNumber("max_retries",
		mcp.Description("Attempts per phase."),
		mcp.DefaultNumber(core.DefaultMaxRetries),
	)
}

func checkCoverageArg() mcp.ToolOption {
	return mcp.WithBoolean("check_coverage",
		mcp.Description("Build a coverage report after a successful validation."),
		mcp.DefaultBool(false),
	)
}
