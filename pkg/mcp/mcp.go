// Package mcp exposes the report views of a finalized Aggregator as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/report"
)

const (
	ToolOverview   = "overview"
	ToolTopOverall = "top_overall"
	ToolTopSelf    = "top_self"
	ToolSequences  = "sequences"
	ToolPathDetail = "path_detail"

	DefaultTopN = 10
)

var ErrNilAggregator = errors.New("aggregator is nil")

type Tools struct {
	agg    *aggregate.Aggregator
	logger log.Logger
}

type Option func(*Tools)

func WithLogger(logger log.Logger) Option {
	return func(t *Tools) {
		t.logger = logger
	}
}

func NewTools(agg *aggregate.Aggregator, opts ...Option) (*Tools, error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}
	if !agg.Finalized() {
		return nil, aggregate.ErrNotFinalized
	}

	t := &Tools{agg: agg, logger: log.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With().Str("component", "mcp").Logger()

	return t, nil
}

// NewServer returns an MCP server with every tool registered.
func (t *Tools) NewServer(version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(settings.CmdName, version, mcpserver.WithLogging())
	t.Register(s)

	return s
}

func (t *Tools) Register(s *mcpserver.MCPServer) {
	topN := mcpgo.WithNumber("top_n",
		mcpgo.Description("Number of entries to return (default: 10, 0 for all)"),
	)

	s.AddTool(mcpgo.NewTool(ToolOverview,
		mcpgo.WithDescription("Number of samples, distinct stack traces and distinct leaf frames of the profile"),
	), t.Overview)

	s.AddTool(mcpgo.NewTool(ToolTopOverall,
		mcpgo.WithDescription("Frames ranked by the share of samples they appear in (inclusive time)"),
		topN,
	), t.TopOverall)

	s.AddTool(mcpgo.NewTool(ToolTopSelf,
		mcpgo.WithDescription("Frames ranked by the share of samples they are the leaf of (exclusive time)"),
		topN,
	), t.TopSelf)

	s.AddTool(mcpgo.NewTool(ToolSequences,
		mcpgo.WithDescription("Full root-first stack traces ranked by number of samples"),
		topN,
	), t.Sequences)

	s.AddTool(mcpgo.NewTool(ToolPathDetail,
		mcpgo.WithDescription("Callers and callees of a call path, with the cumulative share of each of its prefixes"),
		mcpgo.WithString("path",
			mcpgo.Required(),
			mcpgo.Description("Root-first frames joined by ';', e.g. main;parse"),
		),
	), t.PathDetail)
}

// ServeStdio serves s on the standard input and output until EOF.
func ServeStdio(s *mcpserver.MCPServer) error {
	return errors.Wrap(mcpserver.ServeStdio(s), "failed to serve MCP")
}

func (t *Tools) Overview(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return t.result(ToolOverview, report.NewOverview(t.agg))
}

func (t *Tools) TopOverall(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return t.result(ToolTopOverall, top(report.Overall(t.agg), req))
}

func (t *Tools) TopSelf(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return t.result(ToolTopSelf, top(report.Self(t.agg), req))
}

func (t *Tools) Sequences(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return t.result(ToolSequences, top(report.Sequences(t.agg), req))
}

func (t *Tools) PathDetail(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	detail, err := report.Detail(t.agg, aggregate.ParsePath(path))
	if err != nil {
		t.logger.Debug().Err(err).Str("tool", ToolPathDetail).Msg("query failed")
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	return t.result(ToolPathDetail, detail)
}

func top(entries []report.Entry, req mcpgo.CallToolRequest) []report.Entry {
	n := int(req.GetFloat("top_n", DefaultTopN))
	if n > 0 && n < len(entries) {
		return entries[:n]
	}

	return entries
}

func (t *Tools) result(tool string, view any) (*mcpgo.CallToolResult, error) {
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s result", tool)
	}
	t.logger.Debug().Str("tool", tool).Int("bytes", len(b)).Msg("tool called")

	return mcpgo.NewToolResultText(string(b)), nil
}
