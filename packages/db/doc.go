// Package db is a thin facade over database/sql used by SQL helper
// functions.
//
// A Proxy maps a database name and role to a connection string and opens
// each (database, role) client lazily, exactly once, on first use. Queries
// return only the first row, as a case-insensitive column map.
//
// Supported connection strings:
//   - sqlite://path/to/db.sqlite
//   - sqlite:./test.db
package db
