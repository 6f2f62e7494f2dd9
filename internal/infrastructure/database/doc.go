// Package database provides SQLite connectivity for the DMX engine.
//
// The engine persists one thing: the network error history recorded by the
// diagnostics aggregator, so that it survives restarts and can be queried
// beyond the in-memory cap. The schema lives in the migrations package.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned migrations read from any fs.FS
//   - In-memory databases for tests (Path: MemoryPath)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Each migration is applied in its own transaction.
package database
