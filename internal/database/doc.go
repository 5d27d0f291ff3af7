// Package database owns the SQLite handle shared by every postpilot store.
//
// Open applies the connection pragmas (WAL, foreign keys, busy timeout),
// creates or verifies the embedded schema, and applies forward migrations.
// Writes go through ExecWithRetry so transient SQLITE_BUSY contention between
// the daemon and CLI invocations is absorbed with a short backoff.
//
// Timestamps are stored as fixed-width UTC strings (see FormatTime) so that
// lexical comparison in SQL matches chronological order.
package database
