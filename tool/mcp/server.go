// Package mcp serves the tool registry to agent hosts over the Model Context
// Protocol (JSON-RPC 2.0, newline-delimited on stdio).
package mcp

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/petal-labs/applebooks-mcp/tool"
)

// ServerName is advertised in the initialize handshake.
const ServerName = "apple-books-mcp"

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Registry *tool.Registry
	Version  string
	Logger   *logrus.Entry
}

// Server exposes every registry tool as a read-only MCP tool.
type Server struct {
	registry *tool.Registry
	mcp      *mcpserver.MCPServer
	log      *logrus.Entry
}

// NewServer registers the registry catalog on a fresh MCP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("mcp: server registry is required")
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{
		registry: cfg.Registry,
		mcp: mcpserver.NewMCPServer(ServerName, version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
		log: logger.WithField("component", "mcp"),
	}
	for _, t := range cfg.Registry.Tools() {
		s.mcp.AddTool(toolDefinition(t), s.handler(t.Name))
	}
	return s, nil
}

func toolDefinition(t tool.Tool) mcpgo.Tool {
	opts := []mcpgo.ToolOption{
		mcpgo.WithDescription(t.Description),
		mcpgo.WithReadOnlyHintAnnotation(true),
	}
	for _, arg := range t.Args {
		opts = append(opts, mcpgo.WithString(arg.Name,
			mcpgo.Required(),
			mcpgo.Description(arg.Description),
		))
	}
	return mcpgo.NewTool(t.Name, opts...)
}

// handler adapts one registry tool. Tool failures become isError results
// so the session stays usable for the next request.
func (s *Server) handler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		text, err := s.registry.Call(ctx, name, req.GetArguments())
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		return mcpgo.NewToolResultText(text), nil
	}
}

// Serve reads requests from in and writes responses to out until ctx ends
// or in reaches EOF. Both shutdown paths return nil.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	errLog := s.log.WriterLevel(logrus.ErrorLevel)
	defer errLog.Close()

	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errLog, "", 0))

	s.log.WithField("tools", len(s.registry.Tools())).Info("--- Started Apple Books MCP server ---")
	err := stdio.Listen(ctx, in, out)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		s.log.Info("mcp server stopped")
		return nil
	default:
		return err
	}
}
