// Package database provides the SQLite store behind the home panel.
//
// It holds two small tables: user settings (the software alarm threshold)
// and the door activity log. The package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Additive schema migrations loaded from any fs.FS
//   - File permissions (0600) on the database file
//
// All queries in the repositories built on this package use
// parameterised statements.
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. New columns must be NULLABLE or carry a DEFAULT.
package database
