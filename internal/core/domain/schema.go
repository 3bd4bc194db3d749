package domain

// ColumnDescriptor is registered column metadata. It is not checked against
// the live database.
type ColumnDescriptor struct {
	Name         string `json:"name"`
	DeclaredType string `json:"type"`
	Nullable     bool   `json:"nullable"`
}

// TableDescriptor names a table and its columns in declaration order.
type TableDescriptor struct {
	Name    string             `json:"name"`
	Columns []ColumnDescriptor `json:"columns"`
}

// Column returns a nullable column descriptor, the common case.
func Column(name, declaredType string) ColumnDescriptor {
	return ColumnDescriptor{Name: name, DeclaredType: declaredType, Nullable: true}
}
