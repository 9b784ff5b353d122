package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/verbalia/qasmith/internal/pipeline"
	"github.com/verbalia/qasmith/internal/qagen"
)

// NewMCPServer exposes the pipelines and the job registry as MCP tools, so
// agent hosts can enhance answers and mine QA pairs without the HTTP API.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"qasmith",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("qasmith — answer enhancement and QA dataset generation over conversation records."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("enhance_answer",
			mcp.WithDescription("Rewrite a knowledge-base answer under an automatically selected strategy."),
			mcp.WithString("question", mcp.Description("The user question"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The current answer text"), mcp.Required()),
		),
		mcpEnhanceAnswer(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_qa",
			mcp.WithDescription("Generate question/answer pairs from conversation records and return the full result as JSON."),
			mcp.WithString("records", mcp.Description("JSON array of conversation records, each with a messages list of {sender, content}"), mcp.Required()),
			mcp.WithString("source", mcp.Description("Provenance label attached to every generated pair (default \"mcp\")")),
		),
		mcpGenerateQA(deps),
	)

	s.AddTool(
		mcp.NewTool("job_status",
			mcp.WithDescription("Look up an asynchronous job by id: status, progress, result or error."),
			mcp.WithString("job_id", mcp.Description("The job id returned by an async submission"), mcp.Required()),
		),
		mcpJobStatus(deps),
	)

	return s
}

func mcpEnhanceAnswer(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		enhanced, err := deps.Enhance.Enhance(ctx, question, answer)
		if err != nil {
			return mcpError(fmt.Sprintf("enhancement failed: %v", err)), nil
		}
		return mcpText(enhanced), nil
	}
}

func mcpGenerateQA(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recordsJSON, err := req.RequireString("records")
		if err != nil {
			return mcpError("records is required"), nil
		}

		var records []qagen.Record
		if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
			return mcpError(fmt.Sprintf("invalid records JSON: %v", err)), nil
		}

		source := req.GetString("source", "mcp")
		meta := qagen.NewMetadata(source)
		contexts := qagen.BuildContexts(records, deps.MaxContextLength)

		result, err := pipeline.RunGeneration(ctx, deps.QAGen, contexts, meta, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		persistDataset(deps, result, meta)

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpJobStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := req.RequireString("job_id")
		if err != nil {
			return mcpError("job_id is required"), nil
		}

		j, err := deps.Jobs.Get(jobID)
		if err != nil {
			return mcpError(fmt.Sprintf("job lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(j)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal job: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
