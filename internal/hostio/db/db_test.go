package db

import "testing"

func TestOpenRejectsUnsupportedDriver(t *testing.T) {
	m := NewManager()
	if _, err := m.Open("oracle", "whatever"); err == nil {
		t.Fatalf("expected an error for an unsupported driver")
	}
}

func TestQueryOnUnknownHandleErrors(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Query(999, "select 1"); err == nil {
		t.Fatalf("expected an error for an unknown handle")
	}
}

func TestExecOnUnknownHandleErrors(t *testing.T) {
	m := NewManager()
	if _, err := m.Exec(999, "drop table x"); err == nil {
		t.Fatalf("expected an error for an unknown handle")
	}
}

func TestCloseUnknownHandleIsANoop(t *testing.T) {
	m := NewManager()
	if err := m.Close(999); err != nil {
		t.Fatalf("closing an unknown handle should not error, got %v", err)
	}
}

func TestOpenQueryExecAgainstInMemorySqlite(t *testing.T) {
	m := NewManager()
	handle, err := m.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error opening: %v", err)
	}
	defer m.Close(handle)

	if _, err := m.Exec(handle, "create table items (id integer, name text)"); err != nil {
		t.Fatalf("unexpected error creating table: %v", err)
	}
	affected, err := m.Exec(handle, "insert into items (id, name) values (1, 'widget')")
	if err != nil {
		t.Fatalf("unexpected error inserting: %v", err)
	}
	if affected != 1 {
		t.Fatalf("got %d affected rows, want 1", affected)
	}

	cols, rows, err := m.Query(handle, "select id, name from items")
	if err != nil {
		t.Fatalf("unexpected error querying: %v", err)
	}
	if len(cols) != 2 || cols[0] != "id" || cols[1] != "name" {
		t.Fatalf("got columns %v, want [id name]", cols)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}
