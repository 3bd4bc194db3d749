package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// callState holds per-request timing and span data.
type callState struct {
	tool  string
	start time.Time
	span  trace.Span
}

// callKey identifies one in-flight call. JSON-RPC ids are only unique
// within a session, so concurrent HTTP clients may reuse the same id.
type callKey struct {
	session string
	id      string
}

func keyFor(ctx context.Context, id any) callKey {
	k := callKey{id: fmt.Sprint(id)}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		k.session = session.SessionID()
	}
	return k
}

// callTracker pairs before/after hook invocations by session and request id.
type callTracker struct {
	calls sync.Map // callKey -> *callState
}

func (c *callTracker) begin(ctx context.Context, tracer trace.Tracer, id any, tool string) {
	state := &callState{tool: tool, start: time.Now()}
	if tracer != nil {
		_, state.span = tracer.Start(ctx, "mcp.tool.call",
			trace.WithAttributes(
				attribute.String("mcp.tool", tool),
				attribute.String("rpc.jsonrpc.request_id", fmt.Sprint(id)),
			),
		)
	}
	c.calls.Store(keyFor(ctx, id), state)
}

// end returns the state stored by begin, or a zero state when the call was
// never seen (for example an error raised before the tool was dispatched).
func (c *callTracker) end(ctx context.Context, id any) (*callState, time.Duration) {
	v, ok := c.calls.LoadAndDelete(keyFor(ctx, id))
	if !ok {
		return &callState{}, 0
	}
	state := v.(*callState)
	return state, time.Since(state.start)
}

// ToolCallHooks creates MCP hooks that log tool calls and optionally record
// OTel spans and metrics. tracer and inst may be nil.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	tracker := &callTracker{}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		tracker.begin(ctx, tracer, id, req.Params.Name)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		state, duration := tracker.end(ctx, id)

		level := slog.LevelInfo
		isErr := false
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			level = slog.LevelWarn
			isErr = true
		}

		logger.LogAttrs(ctx, level, "tool call",
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", req.Params.Name),
			slog.Duration("duration", duration),
			slog.Bool("error", isErr),
		)

		if inst != nil {
			inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
		}

		if state.span != nil {
			if isErr {
				state.span.SetStatus(codes.Error, "tool returned error")
				state.span.RecordError(fmt.Errorf("tool %s returned error", req.Params.Name))
			}
			state.span.End()
		}
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		state, duration := tracker.end(ctx, id)

		toolName := state.tool
		if req, ok := message.(*mcp.CallToolRequest); ok {
			toolName = req.Params.Name
		}
		if toolName != "" {
			logger.LogAttrs(ctx, slog.LevelError, "tool call",
				slog.String("rpc.method", string(method)),
				slog.String("mcp.tool", toolName),
				slog.Duration("duration", duration),
				slog.Bool("error", true),
				slog.String("error.message", err.Error()),
			)
		}

		if state.span != nil {
			state.span.RecordError(err)
			state.span.SetStatus(codes.Error, err.Error())
			state.span.End()
		}
	})

	return hooks
}
