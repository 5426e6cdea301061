// Package testutil provides a throwaway SQLite copy of the QuizPractice
// [Package] table for tests that exercise the reseed path without SQL Server.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quizpractice/pkge2e/pkg/dbsession"
)

// PackageSchema mirrors the columns of the [Package] table touched by the harness
const PackageSchema = `
CREATE TABLE [Package] (
	PackageId       INTEGER PRIMARY KEY,
	SubjectId       INTEGER NOT NULL,
	PackageName     TEXT    NOT NULL,
	PackageDuration INTEGER NOT NULL,
	ListPrice       REAL    NOT NULL,
	SalePrice       REAL    NOT NULL,
	Status          INTEGER NOT NULL,
	Description     TEXT
);`

// DirtySeed leaves the canonical rows modified the way a previous scenario would
const DirtySeed = `
INSERT INTO [Package] VALUES (1, 1, 'haha', 48, 10, 9, 0, 'Hello world');
INSERT INTO [Package] VALUES (2, 1, '9 Month Premium', 9, 30, 24, 0, 'Hello world');
INSERT INTO [Package] VALUES (3, 1, '3 Month Premium', 3, 10, 9, 1, NULL);
INSERT INTO [Package] VALUES (4, 1, 'haha', 48, 10, 9, 0, 'Hello world');
INSERT INTO [Package] VALUES (5, 1, 'extra', 12, 50, 40, 1, NULL);
INSERT INTO [Package] VALUES (6, 2, 'VAT 1 Month', 1, 5, 5, 1, NULL);`

// NewPackageDB creates a SQLite database holding the dirty seed and returns a
// session config pointing at it.
func NewPackageDB(t *testing.T) dbsession.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quiz_practice.db")
	Exec(t, path, PackageSchema, DirtySeed)

	return dbsession.Config{
		Driver: dbsession.DriverSQLite,
		Path:   path,
	}
}

// Exec runs statements against the database file outside of any Factory
func Exec(t *testing.T, path string, statements ...string) {
	t.Helper()

	db, err := sql.Open(dbsession.DriverSQLite, "file:"+path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
}
