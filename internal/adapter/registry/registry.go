package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
)

// Registry is an in-memory store of operator-registered table metadata.
// Reads may run concurrently; Register takes the exclusive lock.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]domain.TableDescriptor
}

func New() *Registry {
	return &Registry{tables: make(map[string]domain.TableDescriptor)}
}

// Register adds or replaces the table with the same name.
func (r *Registry) Register(table domain.TableDescriptor) {
	table.Columns = append([]domain.ColumnDescriptor(nil), table.Columns...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Name] = table
}

// List returns registered table names sorted lexicographically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Describe(name string) (domain.TableDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.tables[name]
	if !ok {
		return domain.TableDescriptor{}, false
	}
	table.Columns = append([]domain.ColumnDescriptor(nil), table.Columns...)
	return table, true
}

// Summarize renders one line per table, sorted by name:
//
//	users: id (INTEGER), name (TEXT)
func (r *Registry) Summarize() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		cols := make([]string, 0, len(r.tables[name].Columns))
		for _, c := range r.tables[name].Columns {
			cols = append(cols, c.Name+" ("+c.DeclaredType+")")
		}
		lines = append(lines, name+": "+strings.Join(cols, ", "))
	}
	return strings.Join(lines, "\n")
}
