package catalog

import (
	"errors"
	"testing"
)

func TestRenderMatchesPromptLayout(t *testing.T) {
	desc := Description{Tables: []Table{
		{Name: "users", Columns: []Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "VARCHAR"}}},
		{Name: "courses", Columns: []Column{{Name: "id", Type: "INTEGER"}}},
	}}
	want := "\nTable: users\n  - id: INTEGER\n  - name: VARCHAR\n\nTable: courses\n  - id: INTEGER\n"
	if got := desc.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderEmptyDescription(t *testing.T) {
	if got := (Description{}).Render(); got != "" {
		t.Fatalf("Render() = %q", got)
	}
	if !(Description{}).IsEmpty() {
		t.Fatal("IsEmpty() = false")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	desc := Description{Tables: []Table{{Name: "users", Columns: []Column{{Name: "id", Type: "INTEGER"}}}}}
	clone := desc.Clone()
	clone.Tables[0].Columns[0].Name = "changed"
	clone.Tables[0].Name = "changed"
	if desc.Tables[0].Name != "users" || desc.Tables[0].Columns[0].Name != "id" {
		t.Fatalf("original mutated: %+v", desc)
	}
}

func TestTableNamesPreservesOrder(t *testing.T) {
	desc := Description{Tables: []Table{{Name: "b"}, {Name: "a"}}}
	names := desc.TableNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("TableNames() = %v", names)
	}
}

func TestIntrospectionErrorUnwraps(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := error(&IntrospectionError{Op: "list tables", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is() = false")
	}
	var target *IntrospectionError
	if !errors.As(err, &target) || target.Op != "list tables" {
		t.Fatalf("errors.As() target = %+v", target)
	}
	if err.Error() != "introspect schema: list tables: disk I/O error" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
