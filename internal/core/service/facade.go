package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/guillermoBallester/sqlgate/internal/core/port"
)

// ErrorPayload is the single error shape callers see, whether a query was
// rejected by the validator or failed in the engine.
type ErrorPayload struct {
	Error    bool     `json:"error"`
	Messages []string `json:"messages"`
}

// RunQueryResponse holds exactly one of Result or Failure.
type RunQueryResponse struct {
	RequestID string
	Result    *domain.ResultSet
	Failure   *ErrorPayload
}

func (r RunQueryResponse) IsError() bool {
	return r.Failure != nil
}

func (r RunQueryResponse) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	return json.Marshal(r.Result)
}

// Facade maps tool requests onto the query pipeline and the schema registry.
type Facade struct {
	query    *QueryService
	registry port.SchemaRegistry
}

func NewFacade(query *QueryService, registry port.SchemaRegistry) *Facade {
	return &Facade{query: query, registry: registry}
}

// HandleRunQuery validates and executes sql. It never returns a Go error:
// every failure is folded into the response's error payload.
func (f *Facade) HandleRunQuery(ctx context.Context, sql string) RunQueryResponse {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithRequestID(ctx, id)
	}

	result, err := f.query.Execute(ctx, sql)
	if err != nil {
		return RunQueryResponse{
			RequestID: id,
			Failure:   &ErrorPayload{Error: true, Messages: domain.Messages(err)},
		}
	}
	return RunQueryResponse{RequestID: id, Result: result}
}

// HandleListTables returns registered table names in lexicographic order.
func (f *Facade) HandleListTables() []string {
	names := f.registry.List()
	if names == nil {
		names = []string{}
	}
	return names
}

// HandleDescribeTable returns the registered descriptor or an error wrapping domain.ErrNotFound.
func (f *Facade) HandleDescribeTable(name string) (*domain.TableDescriptor, error) {
	table, ok := f.registry.Describe(name)
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, domain.ErrNotFound)
	}
	if table.Columns == nil {
		table.Columns = []domain.ColumnDescriptor{}
	}
	return &table, nil
}

func (f *Facade) HandleSchemaSummary() string {
	return f.registry.Summarize()
}
