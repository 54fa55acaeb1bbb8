// Package fixtures provides test data factories for the GoodJobs API.
//
// # Creating Test Data
//
//	f := fixtures.New(tdb.DB)
//	alice := f.CreateUser(t)                          // random name
//	bob := f.CreateUser(t, fixtures.WithName("bob"))  // fixed name
//	admin := f.CreateAdmin(t)
//	jobs := f.CreateGoodJobs(t, alice, 3)
//
// Every fixture user has password DefaultPassword stored as the legacy
// SHA-256 digest.
package fixtures
