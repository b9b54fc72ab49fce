// Package catalog holds the schema description a session is grounded on.
// A Description is loaded once per session and never mutated afterwards.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

type Introspector interface {
	Describe(ctx context.Context) (Description, error)
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Description struct {
	Tables []Table `json:"tables"`
}

// IntrospectionError means the catalog could not be read. It is fatal to
// session startup.
type IntrospectionError struct {
	Op  string
	Err error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspect schema: %s: %v", e.Op, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}

func (d Description) IsEmpty() bool {
	return len(d.Tables) == 0
}

func (d Description) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		names = append(names, table.Name)
	}
	return names
}

// Render produces the textual form embedded into prompts:
//
//	Table: users
//	  - id: INTEGER
func (d Description) Render() string {
	var b strings.Builder
	for _, table := range d.Tables {
		b.WriteString("\nTable: ")
		b.WriteString(table.Name)
		b.WriteString("\n")
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "  - %s: %s\n", column.Name, column.Type)
		}
	}
	return b.String()
}

// Clone returns a deep copy so callers can never alias session state.
func (d Description) Clone() Description {
	tables := make([]Table, len(d.Tables))
	for i, table := range d.Tables {
		tables[i] = Table{Name: table.Name, Columns: append([]Column(nil), table.Columns...)}
	}
	return Description{Tables: tables}
}
