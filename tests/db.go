package testutil

import (
	"testing"

	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

// OpenDB opens a fresh in-memory database for tests.
func OpenDB() *inmemdb.DB {
	db, err := inmemdb.Open()
	if err != nil {
		panic(err)
	}
	return db
}

// ResetDB truncates all tables.
func ResetDB(t *testing.T, db *inmemdb.DB) {
	t.Helper()
	db.Reset()
}
