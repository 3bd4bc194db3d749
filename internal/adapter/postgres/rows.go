package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// collect converts pgx.Rows into a capped ResultSet.
func collect(rows pgx.Rows) (*domain.ResultSet, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	c := domain.NewRowCollector(columns)
	for !c.Full() && rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make([]domain.Value, len(vals))
		for i, v := range vals {
			row[i] = toValue(v)
		}
		c.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return c.Result(), nil
}

// toValue handles the pgx decodings that have no faithful %v rendering.
// Everything else goes through domain.ValueOf.
func toValue(v any) domain.Value {
	switch x := v.(type) {
	case [16]byte:
		return domain.Text(uuid.UUID(x).String())
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return domain.Text(fmt.Sprintf("%v", x))
		}
		return domain.Text(string(b))
	default:
		return domain.ValueOf(v)
	}
}
