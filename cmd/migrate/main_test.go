package main

import (
	"strings"
	"testing"
)

func TestSectionsSplitsOnDownMarker(t *testing.T) {
	up, down := sections("CREATE TABLE a (id text);\n-- +migrate Down\nDROP TABLE a;\n")
	if !strings.Contains(up, "CREATE TABLE a") || strings.Contains(up, "DROP") {
		t.Fatalf("unexpected up section: %q", up)
	}
	if strings.TrimSpace(down) != "DROP TABLE a;" {
		t.Fatalf("unexpected down section: %q", down)
	}

	up, down = sections("CREATE TABLE b (id text);")
	if down != "" || up == "" {
		t.Fatalf("file without marker should be all up: %q %q", up, down)
	}
}

func TestSplitSQL(t *testing.T) {
	script := `-- users
CREATE TABLE users (
    id text PRIMARY KEY
);

CREATE INDEX users_idx ON users (id);
SELECT 1`
	statements := splitSQL(script)
	if len(statements) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(statements), statements)
	}
	if !strings.HasPrefix(statements[0], "CREATE TABLE users (") || !strings.Contains(statements[0], ");") {
		t.Fatalf("multi-line statement not joined: %q", statements[0])
	}
	if strings.Contains(statements[0], "-- users") {
		t.Fatalf("comment lines must be dropped: %q", statements[0])
	}
	if strings.TrimSpace(statements[2]) != "SELECT 1" {
		t.Fatalf("trailing statement without semicolon lost: %q", statements[2])
	}
}
