package store

import (
	"testing"
)

func TestSchemaConstants(t *testing.T) {
	if SchemaVersion != "1" {
		t.Errorf("SchemaVersion = %s, want 1", SchemaVersion)
	}
	if DefaultBusyTimeout != 30000 {
		t.Errorf("DefaultBusyTimeout = %d, want 30000", DefaultBusyTimeout)
	}
}

func TestGetBusyTimeout(t *testing.T) {
	// Save original config value
	origConfig := configBusyTimeout
	defer func() { configBusyTimeout = origConfig }()

	// Clear env var for clean test
	t.Setenv(EnvBusyTimeout, "")

	// Default value when nothing is set
	configBusyTimeout = 0
	if got := GetBusyTimeout(); got != DefaultBusyTimeout {
		t.Errorf("default timeout = %d, want %d", got, DefaultBusyTimeout)
	}

	// Config file value
	configBusyTimeout = 5000
	if got := GetBusyTimeout(); got != 5000 {
		t.Errorf("config timeout = %d, want 5000", got)
	}

	// Env var overrides config
	t.Setenv(EnvBusyTimeout, "15000")
	if got := GetBusyTimeout(); got != 15000 {
		t.Errorf("env timeout = %d, want 15000", got)
	}

	// Invalid env value falls through to config
	t.Setenv(EnvBusyTimeout, "garbage")
	if got := GetBusyTimeout(); got != 5000 {
		t.Errorf("invalid env should fall back to config = %d, want 5000", got)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
-- comment only line
CREATE TABLE a (
    id TEXT PRIMARY KEY
);

CREATE INDEX idx_a ON a(id);
INSERT INTO a VALUES ('x')
`
	stmts := splitStatements(script)
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3: %q", len(stmts), stmts)
	}
	if stmts[1] != "CREATE INDEX idx_a ON a(id);" {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
	// Trailing statement without semicolon is kept
	if stmts[2] != "INSERT INTO a VALUES ('x')" {
		t.Errorf("unexpected trailing statement: %q", stmts[2])
	}
}
