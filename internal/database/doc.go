// Package database provides database connectivity for the GoodJobs API.
//
// # Connection Management
//
// Connect to PostgreSQL:
//
//	db := database.NewSQL(database.Config{
//	    Driver:   "postgres",
//	    Host:     "localhost",
//	    Port:     "5432",
//	    User:     "goodjobs",
//	    Password: "secret",
//	    Name:     "goodjobs",
//	})
//	if err := db.Connect(ctx); err != nil { ... }
//
// or an embedded SQLite file with Driver "sqlite".
//
// # Query Helpers
//
//	var n int
//	q := db.Conn()
//	err := sqlx.GetContext(ctx, q, &n, q.Rebind("SELECT COUNT(*) FROM good_jobs WHERE current_owner_id = ?"), id)
package database
