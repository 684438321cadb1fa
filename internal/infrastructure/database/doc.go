// Package database provides SQLite connectivity for the local
// print-job history.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Forward-only schema migrations from an embedded filesystem
//   - Connection lifecycle and file permissions
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Files); err != nil {
//	    log.Fatal(err)
//	}
package database
