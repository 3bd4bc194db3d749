package registry

import (
	"fmt"
	"os"

	"github.com/guillermoBallester/sqlgate/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// file is the YAML layout accepted by LoadFile:
//
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: INTEGER, nullable: false}
//	      - {name: email, type: TEXT}   # nullable defaults to true
type file struct {
	Tables []fileTable `yaml:"tables"`
}

type fileTable struct {
	Name    string       `yaml:"name"`
	Columns []fileColumn `yaml:"columns"`
}

type fileColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
}

// LoadFile reads table descriptors from a YAML file and registers each one.
// It returns the number of tables registered.
func LoadFile(r *Registry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading schema file: %w", err)
	}

	tables, err := parse(data)
	if err != nil {
		return 0, err
	}

	for _, t := range tables {
		r.Register(t)
	}
	return len(tables), nil
}

func parse(data []byte) ([]domain.TableDescriptor, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}

	tables := make([]domain.TableDescriptor, 0, len(f.Tables))
	for i, ft := range f.Tables {
		if ft.Name == "" {
			return nil, fmt.Errorf("tables[%d]: name is required", i)
		}
		td := domain.TableDescriptor{Name: ft.Name}
		for j, fc := range ft.Columns {
			if fc.Name == "" {
				return nil, fmt.Errorf("tables[%d].columns[%d]: name is required", i, j)
			}
			col := domain.Column(fc.Name, fc.Type)
			if fc.Nullable != nil {
				col.Nullable = *fc.Nullable
			}
			td.Columns = append(td.Columns, col)
		}
		tables = append(tables, td)
	}
	return tables, nil
}
