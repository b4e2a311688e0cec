// Package migration applies numbered SQL files to a SQLite database.
//
// Files are read from an fs.FS (usually an embed.FS) and must be named
// {version}_{description}.sql, e.g. "001_initial_schema.sql". Versions must
// form a continuous sequence. Each migration runs in its own transaction
// together with the schema_migrations row that records it, so a failed file
// leaves no trace and is retried on the next run.
//
//	scanner := migration.NewFileScanner(migrationsFS, "migrations")
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewMigrationManager(scanner, executor, logger)
//	if _, err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
