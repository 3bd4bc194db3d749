package port

import "github.com/guillermoBallester/sqlgate/internal/core/domain"

// SchemaRegistry is in-memory table metadata registered by an operator.
type SchemaRegistry interface {
	Register(table domain.TableDescriptor)
	List() []string
	Describe(name string) (domain.TableDescriptor, bool)
	Summarize() string
}
