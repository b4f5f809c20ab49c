// Package mcpserver exposes the pipeline to agent collaborators over the
// Model Context Protocol. An agent produces command strings; every string
// still passes through classification like any other submission.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nlterm/nlterm/internal/pipeline"
	"github.com/nlterm/nlterm/internal/session"
)

// Server bridges MCP tool calls to the pipeline.
type Server struct {
	pipe *pipeline.Pipeline
	log  session.Log
	mcp  *server.MCPServer
}

// New creates an MCP server with the nlterm tool surface registered.
func New(pipe *pipeline.Pipeline, log session.Log, version string) *Server {
	s := &Server{
		pipe: pipe,
		log:  log,
		mcp: server.NewMCPServer("nlterm", version,
			server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Classify a shell command and, if approved, execute it under the configured timeout. Returns the full session record as JSON. Blocked commands are never executed."),
		mcp.WithString("command", mcp.Required(),
			mcp.Description("The literal shell command to submit")),
		mcp.WithString("origin",
			mcp.Description(`How the command was produced: "direct" or "translated" (default "translated")`)),
	), s.handleRunCommand)

	s.mcp.AddTool(mcp.NewTool("classify_command",
		mcp.WithDescription("Classify a shell command without executing or recording it. Returns the verdict as JSON."),
		mcp.WithString("command", mcp.Required(),
			mcp.Description("The literal shell command to classify")),
	), s.handleClassifyCommand)

	s.mcp.AddTool(mcp.NewTool("session_summary",
		mcp.WithDescription("Counts of total, approved, blocked, timed-out, and errored requests in the current session."),
	), s.handleSummary)

	s.mcp.AddTool(mcp.NewTool("session_history",
		mcp.WithDescription("The most recent session records, oldest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of records to return (default 20)")),
	), s.handleHistory)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleRunCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	origin := session.Origin(req.GetString("origin", string(session.OriginTranslated)))
	if origin != session.OriginDirect && origin != session.OriginTranslated {
		return mcp.NewToolResultError(fmt.Sprintf("unknown origin %q", origin)), nil
	}

	rec, err := s.pipe.Submit(ctx, pipeline.Request{Text: command, Origin: origin})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleClassifyCommand(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v := s.pipe.Classify(command)
	return jsonResult(map[string]string{
		"outcome": v.Outcome.String(),
		"reason":  string(v.Reason),
		"rule":    v.Rule,
	})
}

func (s *Server) handleSummary(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.pipe.Summary()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	records, err := s.log.Query(session.Filter{SessionID: s.pipe.SessionID()})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return jsonResult(records)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
