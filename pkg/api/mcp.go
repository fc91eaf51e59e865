package api

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/veilmont/colmatch/pkg/engine"
	"github.com/veilmont/colmatch/pkg/kit"
	"github.com/veilmont/colmatch/pkg/learning"
)

// RegisterMCPTools registers the colmatch MCP tools on the server. The tools
// dispatch to the same endpoints as the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, eng *engine.Engine, store *learning.Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	registerMatchColumns(srv, eng, logger)
	registerSuggestTargets(srv, eng, logger)
	registerAddCorrection(srv, store, logger)
	registerLearningStats(srv, store)
}

func mcpCtx(res *kit.MCPDecodeResult) *kit.MCPDecodeResult {
	res.EnrichCtx = func(ctx context.Context) context.Context {
		return kit.WithTransport(ctx, "mcp_stdio")
	}
	return res
}

func registerMatchColumns(srv *server.MCPServer, eng *engine.Engine, logger *slog.Logger) {
	tool := mcp.NewTool("match_columns",
		mcp.WithDescription("Map supplier catalog column headers onto the target schema. Returns one entry per target field with the matched column, a confidence score and the matching method."),
		mcp.WithString("headers", mcp.Required(), mcp.Description("Comma-separated supplier column headers, e.g. 'Codice articolo,Prezzo,Quantita'")),
		mcp.WithString("targets", mcp.Description("Comma-separated target fields; omit for the default catalog schema")),
		mcp.WithNumber("min_confidence", mcp.Description("Minimum confidence for embedding matches (default 0.6)")),
	)

	endpoint := kit.Instrument(logger, "match")(matchEndpoint(eng))
	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		minConf, _ := args["min_confidence"].(float64)
		return mcpCtx(&kit.MCPDecodeResult{Request: &matchReq{
			Headers:       splitList(args["headers"]),
			Targets:       splitList(args["targets"]),
			MinConfidence: minConf,
		}}), nil
	})
}

func registerSuggestTargets(srv *server.MCPServer, eng *engine.Engine, logger *slog.Logger) {
	tool := mcp.NewTool("suggest_targets",
		mcp.WithDescription("Rank target schema fields for one supplier column header, best first, including candidates below the matching thresholds."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The supplier column header")),
		mcp.WithString("targets", mcp.Description("Comma-separated target fields; omit for the default catalog schema")),
		mcp.WithNumber("top_n", mcp.Description("Number of suggestions to return (default 5)")),
	)

	endpoint := kit.Instrument(logger, "suggest")(suggestEndpoint(eng))
	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		source, _ := args["source"].(string)
		topN, _ := args["top_n"].(float64)
		return mcpCtx(&kit.MCPDecodeResult{Request: &suggestReq{
			Source:  source,
			Targets: splitList(args["targets"]),
			TopN:    int(topN),
		}}), nil
	})
}

func registerAddCorrection(srv *server.MCPServer, store *learning.Store, logger *slog.Logger) {
	tool := mcp.NewTool("add_correction",
		mcp.WithDescription("Record a user-confirmed column mapping so future matches resolve it from learned history."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The supplier column header")),
		mcp.WithString("target", mcp.Required(), mcp.Description("The confirmed target field")),
		mcp.WithString("template", mcp.Description("Optional catalog template identifier")),
		mcp.WithNumber("confidence_before", mcp.Description("Confidence the pipeline had before the correction")),
	)

	endpoint := kit.Instrument(logger, "correct")(correctionEndpoint(store))
	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		source, _ := args["source"].(string)
		target, _ := args["target"].(string)
		template, _ := args["template"].(string)
		confBefore, _ := args["confidence_before"].(float64)
		return mcpCtx(&kit.MCPDecodeResult{Request: &correctionReq{
			Source:           source,
			Target:           target,
			Template:         template,
			ConfidenceBefore: confBefore,
		}}), nil
	})
}

func registerLearningStats(srv *server.MCPServer, store *learning.Store) {
	tool := mcp.NewTool("learning_stats",
		mcp.WithDescription("Aggregate statistics about the learned mapping store: corrections, patterns, per-language training counts."),
	)

	kit.RegisterMCPTool(srv, tool, statsEndpoint(store), func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return mcpCtx(&kit.MCPDecodeResult{Request: nil}), nil
	})
}

// splitList parses a comma-separated MCP string argument; nil when absent.
func splitList(arg any) []string {
	s, _ := arg.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
