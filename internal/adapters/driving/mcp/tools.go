package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	Query       string `json:"query" jsonschema:"the question for the mail assistant"`
	ThreadID    string `json:"thread_id,omitempty" jsonschema:"mail thread to summarize instead of the whole inbox"`
	SubjectLine string `json:"subject_line,omitempty" jsonschema:"subject of the thread, shown in the summary"`
}

// TaskInput is the input schema for the task tool.
type TaskInput struct {
	Payload map[string]any `json:"payload" jsonschema:"task-management request, sent as-is with the user id added"`
}

// ReplyOutput is the output schema for the chat and task tools.
type ReplyOutput struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// StatusInput is the empty input schema for the session_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the session_status tool.
type StatusOutput struct {
	Profile              string `json:"profile"`
	State                string `json:"state"`
	SignedIn             bool   `json:"signed_in"`
	UserID               string `json:"user_id,omitempty"`
	TokenUsable          bool   `json:"token_usable"`
	RefreshCount         int    `json:"refresh_count"`
	IsTemporaryExtension bool   `json:"is_temporary_extension"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask the mail assistant about the inbox or summarize a thread",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "task",
		Description: "Send a request to the task-management assistant",
	}, s.handleTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_status",
		Description: "Report whether saai is signed in and its token is usable",
	}, s.handleStatus)
}

// handleChat handles the chat tool invocation.
func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ReplyOutput, error) {
	reply, err := s.ports.Relay.Chat(ctx, domain.ChatRequest{
		Query:       input.Query,
		ThreadID:    input.ThreadID,
		SubjectLine: input.SubjectLine,
	})
	if err != nil {
		return nil, ReplyOutput{}, userError(err)
	}
	return nil, ReplyOutput{Text: reply.Text, Fallback: reply.Fallback}, nil
}

// handleTask handles the task tool invocation.
func (s *Server) handleTask(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TaskInput,
) (*mcp.CallToolResult, ReplyOutput, error) {
	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	reply, err := s.ports.Relay.Task(ctx, payload)
	if err != nil {
		return nil, ReplyOutput{}, userError(err)
	}
	return nil, ReplyOutput{Text: reply.Text, Fallback: reply.Fallback}, nil
}

// handleStatus handles the session_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Sessions.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, userError(err)
	}
	return nil, StatusOutput{
		Profile:              status.Profile,
		State:                status.State,
		SignedIn:             status.SignedIn,
		UserID:               status.UserID,
		TokenUsable:          status.TokenUsable,
		RefreshCount:         status.RefreshCount,
		IsTemporaryExtension: status.IsTemporaryExtension,
	}, nil
}

// userError keeps the cause out of the tool result.
func userError(err error) error {
	return errors.New(domain.UserMessage(err))
}
