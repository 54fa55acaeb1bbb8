// Package jobs implements background tasks that run independently of HTTP
// request handling.
//
// LedgerAuditor periodically checks GoodJob ownership against the transfer
// history and reports findings through logs and metrics. It never writes to
// the ledger.
//
//	auditor, err := jobs.NewLedgerAuditor(jobs.LedgerAuditorConfig{
//	    Auditor:  goodJobRepo,
//	    Reporter: metrics.Audit{},
//	    Schedule: "@every 1h",
//	})
//	auditor.Start()
//	defer auditor.Stop()
package jobs
