package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "sqlgate"

// Tool names
const (
	ToolRunQuery      = "run_query"
	ToolListTables    = "list_tables"
	ToolDescribeTable = "describe_table"
	ToolSchemaSummary = "schema_summary"
)

// Tool descriptions
const (
	descRunQuery = "Execute a read-only SQL query and return {columns, rows, row_count, truncated}. " +
		"Only a single SELECT (or WITH ... SELECT) statement is accepted; statements containing " +
		"DROP, DELETE, UPDATE, INSERT, ALTER, TRUNCATE, CREATE, GRANT or REVOKE are rejected, " +
		"even inside string literals. At most 100 rows are returned and truncated is true when " +
		"more exist, so add ORDER BY and LIMIT when you need a specific slice. " +
		"Errors come back as {error: true, messages: [...]}."

	descRunQueryParam = "SQL query to execute (a single SELECT statement)"

	descListTables = "List the names of all registered tables in lexicographic order. " +
		"Call this first to discover what can be queried."

	descDescribeTable = "Describe a registered table: its columns with declared types and nullability. " +
		"Use this before writing queries against a table."

	descDescribeTableParam = "Name of the table to describe"

	descSchemaSummary = "Return a compact text summary of every registered table, one line per table " +
		"in the form `table: column (TYPE), ...`. Cheaper than describing tables one by one."
)

func RegisterTools(s *server.MCPServer, facade *service.Facade) {
	s.AddTool(
		mcp.NewTool(ToolRunQuery,
			mcp.WithDescription(descRunQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descRunQueryParam),
			),
		),
		runQueryHandler(facade),
	)

	s.AddTool(
		mcp.NewTool(ToolListTables,
			mcp.WithDescription(descListTables),
		),
		listTablesHandler(facade),
	)

	s.AddTool(
		mcp.NewTool(ToolDescribeTable,
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description(descDescribeTableParam),
			),
		),
		describeTableHandler(facade),
	)

	s.AddTool(
		mcp.NewTool(ToolSchemaSummary,
			mcp.WithDescription(descSchemaSummary),
		),
		schemaSummaryHandler(facade),
	)
}

func runQueryHandler(facade *service.Facade) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// An empty string is left to the validator so the caller sees "Empty query".
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithToolName(ctx, ToolRunQuery)
		resp := facade.HandleRunQuery(ctx, sql)

		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		if resp.IsError() {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listTablesHandler(facade *service.Facade) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(facade.HandleListTables())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func describeTableHandler(facade *service.Facade) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		table, err := facade.HandleDescribeTable(tableName)
		if errors.Is(err, domain.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("table %q not found", tableName)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to describe table: %v", err)), nil
		}

		data, err := json.Marshal(table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func schemaSummaryHandler(facade *service.Facade) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(facade.HandleSchemaSummary()), nil
	}
}
