package db

import (
	"context"
	"reflect"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"uuid = ?", "uuid = $1"},
		{"a IN (?,?,?) AND b != ?", "a IN ($1,$2,$3) AND b != $4"},
		{"name = '?' AND id = ?", "name = '?' AND id = $1"},
	}
	for _, tt := range tests {
		if got := Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringArgs(t *testing.T) {
	got := StringArgs([]string{"a", "b"})
	if !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestSQLite_QueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	if s.Driver() != DriverSQLite {
		t.Errorf("unexpected driver %q", s.Driver())
	}
	if err := s.Exec(ctx, `CREATE TABLE t (k TEXT, v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, k := range []string{"a", "b", "c"} {
		if err := s.Exec(ctx, `INSERT INTO t (k, v) VALUES (?, ?)`, k, i); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, err := s.Query(ctx, `SELECT k FROM t WHERE k != ? ORDER BY v`, StringArgs([]string{"b"})...)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("scan: %v", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "c"}) {
		t.Errorf("got %v", keys)
	}
}
