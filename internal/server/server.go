// Package server exposes the service operations as MCP tools over stdio and
// the standards documents as MCP resources.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vampirenirmal/testloop/internal/service"
	"github.com/vampirenirmal/testloop/internal/standards"
)

// Name is the MCP server name announced to clients.
const Name = "testloop"

// Operations is the part of service.Service the tools call.
type Operations interface {
	GenerateUnitTest(ctx context.Context, req service.GenerateRequest) *service.Envelope
	GenerateIntegrationTest(ctx context.Context, req service.GenerateRequest) *service.Envelope
	ValidateTest(ctx context.Context, req service.ValidateRequest) *service.Envelope
	AnalyzeService(ctx context.Context, req service.AnalyzeRequest) *service.Envelope
}

type Server struct {
	ops       Operations
	standards *standards.Cache
	logger    *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a server. cache may be nil, in which case no resources are
// registered.
func New(ops Operations, cache *standards.Cache, opts ...Option) *Server {
	s := &Server{
		ops:       ops,
		standards: cache,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "mcp")
	return s
}

// MCPServer builds the protocol server with every tool and resource.
func (s *Server) MCPServer(version string) *server.MCPServer {
	m := server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range s.tools() {
		m.AddTool(t.def, t.handle)
	}

	if s.standards != nil {
		for _, doc := range standards.Documents() {
			m.AddResource(
				mcp.NewResource(doc.URI, doc.Name,
					mcp.WithResourceDescription(doc.Description),
					mcp.WithMIMEType("text/markdown"),
				),
				s.readStandard,
			)
		}
	}
	return m
}

// ServeStdio serves MCP on in/out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, version string, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.MCPServer(version))
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "version", version)
	return stdio.Listen(ctx, in, out)
}

func (s *Server) readStandard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, ok := standards.Lookup(req.Params.URI)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", req.Params.URI)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      doc.URI,
			MIMEType: "text/markdown",
			Text:     s.standards.Text(ctx, doc),
		},
	}, nil
}

// envelopeResult renders an envelope as indented JSON. Failed envelopes are
// flagged as tool errors.
func envelopeResult(env *service.Envelope) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	res := mcp.NewToolResultText(string(data))
	res.IsError = !env.Success
	return res, nil
}

// bindArguments decodes tool arguments into target through JSON, so that
// JSON tags on request types apply.
func bindArguments(req mcp.CallToolRequest, target any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}

const instructions = `testloop generates Kotlin service tests and validates them by compiling and
running them with Gradle, applying known fixes between attempts.

Pass structured symbol data from a static-analysis tool as serena_analysis when
you have it; otherwise the service source is parsed with a less precise
fallback and the result reports fidelity "regex".`
