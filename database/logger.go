package database

import (
	"fmt"
	"log/slog"
)

// Logger receives every SQL statement the engine executes, tagged with
// the graph it runs against. The query arrives with bound parameters
// already interpolated for display; execution always uses placeholders.
type Logger interface {
	SQL(gid int64, query string)
}

// StdoutLogger echoes statements the way the CLI's verbose mode shows
// them, one terminated statement per line.
type StdoutLogger struct{}

func (s StdoutLogger) SQL(gid int64, query string) {
	fmt.Printf("-- g=%d\n%s;\n", gid, query)
}

// SlogLogger routes statements to the process logger at debug level.
type SlogLogger struct{}

func (s SlogLogger) SQL(gid int64, query string) {
	slog.Debug("sql", "gid", gid, "query", query)
}

// NullLogger drops everything; the engine's default.
type NullLogger struct{}

func (n NullLogger) SQL(gid int64, query string) {}
