// Package testdb provides test database utilities for the GoodJobs API.
//
// # Test Database Setup
//
// Create a test database for each test:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t) // closed via t.Cleanup
//	}
//
// # Isolation
//
// Each TestDB is a separately named in-memory SQLite database, so tests may
// run in parallel without sharing rows.
package testdb
