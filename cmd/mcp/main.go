// The mcp binary exposes read-only evidence queries as MCP tools over stdio
// so adjuster-facing assistants can pull batch state and case aggregates.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clearclaim/evidence-engine/internal/bootstrap"
	"github.com/clearclaim/evidence-engine/internal/config"
	"github.com/clearclaim/evidence-engine/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// Stdout carries the MCP stream; route logs to stderr instead.
	logging.SetupStderr("mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mcpServer := server.NewMCPServer("evidence-engine", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	batchResults := mcp.NewTool("list_batch_results",
		mcp.WithDescription("Current state of an evidence batch and its per-file processing results"),
		mcp.WithString("batch_id", mcp.Required(), mcp.Description("Batch identifier returned at submission")),
	)
	mcpServer.AddTool(batchResults, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		batchID, err := request.RequireString("batch_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		batch, results, err := app.ReadUC.GetBatch(ctx, batchID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(map[string]any{"batch": batch, "results": results})
	})

	caseAggregate := mcp.NewTool("get_case_aggregate",
		mcp.WithDescription("Fused case-level record built from every completed evidence result for a case"),
		mcp.WithString("case_id", mcp.Required(), mcp.Description("Insurance case identifier")),
	)
	mcpServer.AddTool(caseAggregate, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caseID, err := request.RequireString("case_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := app.AggregateUC.AggregateCase(ctx, caseID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(result)
	})

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func toolResultJSON(payload any) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
