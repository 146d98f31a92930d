// Package testutil opens throwaway stores and seeds fixtures for tests.
package testutil

import (
	"testing"

	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/repository/sqlstore"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB opens a fresh migrated in-memory SQLite database, closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := sqlstore.Open(sqlstore.DriverSQLite, ":memory:", Logger(tb))
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() {
		_ = sqlstore.Close(db)
	})
	if err := sqlstore.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

// Repos returns the relational repositories over a fresh database.
func Repos(tb testing.TB) *repository.Repositories {
	tb.Helper()
	return sqlstore.NewRepositories(DB(tb), Logger(tb))
}
