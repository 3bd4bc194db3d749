package domain

// RowCap is the maximum number of rows a single query returns.
const RowCap = 100

// ResultSet is the capped outcome of one query.
// RowCount always equals len(Rows); Truncated reports that the engine had
// more than RowCap rows, not how many.
type ResultSet struct {
	Columns   []string  `json:"columns"`
	Rows      [][]Value `json:"rows"`
	RowCount  int       `json:"row_count"`
	Truncated bool      `json:"truncated"`
}

// RowCollector accumulates engine rows up to RowCap and notes overflow.
// Adapters feed it until Full reports true, then stop reading.
type RowCollector struct {
	columns   []string
	rows      [][]Value
	truncated bool
}

func NewRowCollector(columns []string) *RowCollector {
	if columns == nil {
		columns = []string{}
	}
	return &RowCollector{columns: columns, rows: make([][]Value, 0)}
}

// Add appends a row, or marks the result truncated once RowCap rows are held.
func (c *RowCollector) Add(row []Value) {
	if len(c.rows) >= RowCap {
		c.truncated = true
		return
	}
	c.rows = append(c.rows, row)
}

// Full reports that no further rows can change the result.
func (c *RowCollector) Full() bool {
	return c.truncated
}

func (c *RowCollector) Result() *ResultSet {
	return &ResultSet{
		Columns:   c.columns,
		Rows:      c.rows,
		RowCount:  len(c.rows),
		Truncated: c.truncated,
	}
}
