// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/export"
	"github.com/jeranaias/taskview/internal/gitinfo"
	"github.com/jeranaias/taskview/internal/task"
	"github.com/jeranaias/taskview/internal/workspace"
)

// maxContextLines caps the context window either side of a search match.
const maxContextLines = 20

// Server wraps the MCP server with the task store.
type Server struct {
	store  *task.Store
	logger *zap.Logger
	server *mcp.Server
}

// NewServer creates the taskview MCP server. A nil logger is replaced
// with a nop.
func NewServer(store *task.Store, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: store, logger: logger}

	impl := &mcp.Implementation{
		Name:    "taskview",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio and blocks until the client
// disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all taskview tools to the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "list_recent_tasks",
		Description: "List RigCoder task conversations, most recently active first. " +
			"Each entry carries the task id, extension variant, last-activity timestamp, " +
			"a short preview of the latest message, and the active-window label when the " +
			"task is currently open in the editor. START HERE to discover task ids.",
	}, s.handleListRecentTasks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_last_n_messages",
		Description: "Get the most recent messages of one task conversation, in ascending " +
			"timestamp order. Accepts a real task id or the sentinels ACTIVE_A / ACTIVE_B " +
			"for the conversation currently open under that window label.",
	}, s.handleGetLastMessages)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_messages_since",
		Description: "Get a task's messages at or after an epoch-millisecond timestamp, " +
			"ascending. Useful for polling a conversation you already read once: pass the " +
			"timestamp of the last message you saw.",
	}, s.handleGetMessagesSince)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search_conversations",
		Description: "Search every known task conversation for a term (case-insensitive). " +
			"Tasks are visited most recently active first and each contributes at most one " +
			"hit: its first matching message. Use get_conversation_context to see the " +
			"messages around a hit.",
	}, s.handleSearchConversations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_conversation_context",
		Description: "Find a term inside task conversations and return each match inside a " +
			"window of surrounding messages. With a task_id the named conversation is " +
			"searched exhaustively; without one, the most recently active conversations " +
			"each contribute their first match.",
	}, s.handleConversationContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_active_task",
		Description: "Get the task conversation currently open in the editor. Window label " +
			"A or B selects a specific editor window; with no label, A is preferred, then " +
			"B, then the most recently activated task.",
	}, s.handleGetActiveTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "send_external_advice",
		Description: "Leave a note on a task for the extension to surface inside the " +
			"editor. The note is written append-only into the task's external-advice " +
			"directory; existing notes are never modified or replaced.",
	}, s.handleSendAdvice)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "export_task",
		Description: "Render a task conversation as a standalone document. Formats: " +
			"markdown (default) or json. Returns the document content; nothing is " +
			"written to disk.",
	}, s.handleExportTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_git_context",
		Description: "Inspect the git repository at a directory: current branch, short " +
			"HEAD, whether the working tree is dirty, and the last few commit subjects. " +
			"Read-only.",
	}, s.handleGitContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_workspace_state",
		Description: "Read keys from a VSCode workspace state database (state.vscdb). " +
			"Pass a key for an exact lookup or a prefix to list matching entries. " +
			"Read-only.",
	}, s.handleWorkspaceState)
}

// toolError maps store errors onto messages an MCP client can act on.
// Absence and timeouts read differently on purpose: absence is final,
// a timeout is worth retrying.
func toolError(err error) error {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return fmt.Errorf("no such conversation: %w", err)
	case errors.Is(err, task.ErrTimeout):
		return fmt.Errorf("read timed out, try again: %w", err)
	default:
		return err
	}
}

// =============================================================================
// LISTING AND MESSAGE TOOLS
// =============================================================================

// ListRecentTasksArgs defines the input for list_recent_tasks.
type ListRecentTasksArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of tasks to return (server-clamped)"`
}

// ListRecentTasksResult is the output of list_recent_tasks.
type ListRecentTasksResult struct {
	Tasks   []task.TaskSummary `json:"tasks"`
	Message string             `json:"message,omitempty"`
}

func (s *Server) handleListRecentTasks(ctx context.Context, req *mcp.CallToolRequest, args ListRecentTasksArgs) (*mcp.CallToolResult, any, error) {
	tasks, err := s.store.ListRecentTasks(ctx, args.Limit)
	if err != nil {
		return nil, nil, toolError(err)
	}

	out := ListRecentTasksResult{Tasks: tasks}
	if len(tasks) == 0 {
		out.Message = "No task conversations found under any scanned root."
	}
	return nil, out, nil
}

// MessagesArgs defines the input for get_last_n_messages and
// get_messages_since.
type MessagesArgs struct {
	TaskID string `json:"task_id" jsonschema:"Task id, or ACTIVE_A / ACTIVE_B for the active conversation"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of messages to return (server-clamped)"`
	Since  int64  `json:"since,omitempty" jsonschema:"Epoch-millisecond timestamp; only messages at or after it are returned"`
}

// MessagesResult is the output of the message query tools.
type MessagesResult struct {
	TaskID   string         `json:"taskId"`
	Count    int            `json:"count"`
	Messages []task.Message `json:"messages"`
	Message  string         `json:"message,omitempty"`
}

func (s *Server) handleGetLastMessages(ctx context.Context, req *mcp.CallToolRequest, args MessagesArgs) (*mcp.CallToolResult, any, error) {
	if args.TaskID == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}

	msgs, err := s.store.GetLastMessages(ctx, args.TaskID, args.Limit)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, messagesResult(args.TaskID, msgs), nil
}

func (s *Server) handleGetMessagesSince(ctx context.Context, req *mcp.CallToolRequest, args MessagesArgs) (*mcp.CallToolResult, any, error) {
	if args.TaskID == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}
	if args.Since <= 0 {
		return nil, nil, fmt.Errorf("since must be a positive epoch-millisecond timestamp")
	}

	msgs, err := s.store.GetMessagesSince(ctx, args.TaskID, args.Since, args.Limit)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, messagesResult(args.TaskID, msgs), nil
}

func messagesResult(taskID string, msgs []task.Message) MessagesResult {
	out := MessagesResult{TaskID: taskID, Count: len(msgs), Messages: msgs}
	if len(msgs) == 0 {
		out.Message = "No messages matched. The conversation may be empty, fully filtered out, or its files unreadable."
	}
	return out
}

// =============================================================================
// SEARCH TOOLS
// =============================================================================

// SearchArgs defines the input for search_conversations.
type SearchArgs struct {
	Term       string `json:"term" jsonschema:"Substring to search for (case-insensitive)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of conversations to return (server-clamped)"`
}

// SearchResult is the output of search_conversations.
type SearchResult struct {
	Results []task.SearchResult `json:"results"`
	Message string              `json:"message,omitempty"`
}

func (s *Server) handleSearchConversations(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if args.Term == "" {
		return nil, nil, fmt.Errorf("term is required")
	}

	results, err := s.store.SearchConversations(ctx, args.Term, args.MaxResults)
	if err != nil {
		return nil, nil, toolError(err)
	}

	out := SearchResult{Results: results}
	if len(results) == 0 {
		out.Message = fmt.Sprintf("No conversation mentions %q.", args.Term)
	}
	return nil, out, nil
}

// ContextArgs defines the input for get_conversation_context.
type ContextArgs struct {
	TaskID       string `json:"task_id,omitempty" jsonschema:"Task id to search; empty searches all conversations, most recently active first"`
	Term         string `json:"term" jsonschema:"Substring to search for (case-insensitive)"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Messages of context either side of each match (clamped to 20)"`
	MaxResults   int    `json:"max_results,omitempty" jsonschema:"Maximum number of matches to return (server-clamped)"`
}

// ContextResult is the output of get_conversation_context.
type ContextResult struct {
	Matches []task.SearchMatch `json:"matches"`
	Message string             `json:"message,omitempty"`
}

func (s *Server) handleConversationContext(ctx context.Context, req *mcp.CallToolRequest, args ContextArgs) (*mcp.CallToolResult, any, error) {
	if args.Term == "" {
		return nil, nil, fmt.Errorf("term is required")
	}
	contextLines := args.ContextLines
	if contextLines <= 0 {
		contextLines = 3
	}
	if contextLines > maxContextLines {
		contextLines = maxContextLines
	}

	matches, err := s.store.SearchWithContext(ctx, args.TaskID, args.Term, contextLines, args.MaxResults)
	if err != nil {
		return nil, nil, toolError(err)
	}

	out := ContextResult{Matches: matches}
	if len(matches) == 0 {
		out.Message = fmt.Sprintf("No match for %q.", args.Term)
	}
	return nil, out, nil
}

// =============================================================================
// ACTIVE TASK AND ADVICE TOOLS
// =============================================================================

// ActiveTaskArgs defines the input for get_active_task.
type ActiveTaskArgs struct {
	Label string `json:"label,omitempty" jsonschema:"Window label A or B; empty applies the default preference"`
}

// ActiveTaskResult is the output of get_active_task.
type ActiveTaskResult struct {
	TaskID        string `json:"taskId"`
	Label         string `json:"label"`
	LastActivated int64  `json:"lastActivated"`
}

func (s *Server) handleGetActiveTask(ctx context.Context, req *mcp.CallToolRequest, args ActiveTaskArgs) (*mcp.CallToolResult, any, error) {
	marker, err := s.store.ActiveTask(ctx, args.Label)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, ActiveTaskResult{
		TaskID:        marker.TaskID,
		Label:         marker.Label,
		LastActivated: marker.LastActivated,
	}, nil
}

// AdviceArgs defines the input for send_external_advice.
type AdviceArgs struct {
	TaskID  string `json:"task_id" jsonschema:"Task id, or ACTIVE_A / ACTIVE_B for the active conversation"`
	Title   string `json:"title,omitempty" jsonschema:"Short heading shown above the note"`
	Content string `json:"content" jsonschema:"The note body (required)"`
	Type    string `json:"type,omitempty" jsonschema:"Advice category, e.g. 'info' or 'warning'"`
}

// AdviceResult is the output of send_external_advice.
type AdviceResult struct {
	AdviceID string `json:"adviceId"`
	TaskID   string `json:"taskId"`
	Message  string `json:"message"`
}

func (s *Server) handleSendAdvice(ctx context.Context, req *mcp.CallToolRequest, args AdviceArgs) (*mcp.CallToolResult, any, error) {
	if args.TaskID == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}
	if args.Content == "" {
		return nil, nil, fmt.Errorf("content is required")
	}

	advice, err := s.store.WriteAdvice(ctx, args.TaskID, task.Advice{
		Title:   args.Title,
		Content: args.Content,
		Type:    args.Type,
	})
	if err != nil {
		return nil, nil, toolError(err)
	}

	return nil, AdviceResult{
		AdviceID: advice.ID,
		TaskID:   args.TaskID,
		Message:  "Advice written; the extension will surface it on its next poll.",
	}, nil
}

// =============================================================================
// EXPORT, GIT, AND WORKSPACE TOOLS
// =============================================================================

// ExportArgs defines the input for export_task.
type ExportArgs struct {
	TaskID string `json:"task_id" jsonschema:"Task id, or ACTIVE_A / ACTIVE_B for the active conversation"`
	Format string `json:"format,omitempty" jsonschema:"Export format: markdown (default) or json"`
}

// ExportResult is the output of export_task.
type ExportResult struct {
	TaskID   string `json:"taskId"`
	Format   string `json:"format"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

func (s *Server) handleExportTask(ctx context.Context, req *mcp.CallToolRequest, args ExportArgs) (*mcp.CallToolResult, any, error) {
	if args.TaskID == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}
	format := args.Format
	if format == "" {
		format = "markdown"
	}

	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		return nil, nil, err
	}

	loc, err := s.store.Resolve(ctx, args.TaskID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	msgs, err := s.store.AllMessages(ctx, args.TaskID)
	if err != nil {
		return nil, nil, toolError(err)
	}

	content, err := exporter.Export(&export.Conversation{
		TaskID:   loc.TaskID,
		Variant:  string(loc.Variant),
		Messages: msgs,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("export failed: %w", err)
	}

	return nil, ExportResult{
		TaskID:   loc.TaskID,
		Format:   format,
		MimeType: exporter.MimeType(),
		Content:  string(content),
	}, nil
}

// GitContextArgs defines the input for get_git_context.
type GitContextArgs struct {
	Dir string `json:"dir" jsonschema:"Directory inside the repository to inspect"`
}

func (s *Server) handleGitContext(ctx context.Context, req *mcp.CallToolRequest, args GitContextArgs) (*mcp.CallToolResult, any, error) {
	if args.Dir == "" {
		return nil, nil, fmt.Errorf("dir is required")
	}

	info, err := gitinfo.Snapshot(ctx, args.Dir)
	if err != nil {
		return nil, nil, err
	}
	return nil, info, nil
}

// WorkspaceStateArgs defines the input for get_workspace_state.
type WorkspaceStateArgs struct {
	Path   string `json:"path" jsonschema:"Path of the state.vscdb file to read"`
	Key    string `json:"key,omitempty" jsonschema:"Exact key to read"`
	Prefix string `json:"prefix,omitempty" jsonschema:"Key prefix to list; ignored when key is set"`
}

// WorkspaceStateResult is the output of get_workspace_state.
type WorkspaceStateResult struct {
	Items   []workspace.Item `json:"items"`
	Message string           `json:"message,omitempty"`
}

func (s *Server) handleWorkspaceState(ctx context.Context, req *mcp.CallToolRequest, args WorkspaceStateArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}
	if args.Key == "" && args.Prefix == "" {
		return nil, nil, fmt.Errorf("key or prefix is required")
	}

	db, err := workspace.OpenRO(args.Path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	out := WorkspaceStateResult{}
	if args.Key != "" {
		value, err := db.ReadKey(ctx, args.Key)
		if err != nil {
			return nil, nil, err
		}
		out.Items = []workspace.Item{{Key: args.Key, Value: value}}
		return nil, out, nil
	}

	items, err := db.Keys(ctx, args.Prefix)
	if err != nil {
		return nil, nil, err
	}
	out.Items = items
	if len(items) == 0 {
		out.Message = fmt.Sprintf("No keys match prefix %q.", args.Prefix)
	}
	return nil, out, nil
}
