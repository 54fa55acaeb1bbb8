package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/forgo/goodjobs/internal/model"
)

// OwnershipAuditor scans the ledger for invariant violations
type OwnershipAuditor interface {
	AuditOwnership(ctx context.Context) (*model.OwnershipAudit, error)
}

// AuditReporter receives every audit outcome
type AuditReporter interface {
	RecordAudit(a *model.OwnershipAudit)
	RecordAuditFailure()
}

// LedgerAuditor runs a read-only ownership audit on a cron schedule
// - GoodJobs owned by administrators
// - GoodJobs whose owner differs from the recipient of their last transfer
type LedgerAuditor struct {
	auditor  OwnershipAuditor
	reporter AuditReporter
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	running  bool
	mu       sync.Mutex
}

// LedgerAuditorConfig holds auditor dependencies
type LedgerAuditorConfig struct {
	Auditor  OwnershipAuditor
	Reporter AuditReporter // optional
	Schedule string        // standard cron spec or descriptor, default "@every 1h"
	Timeout  time.Duration // per run, default 2 minutes
}

// NewLedgerAuditor creates a ledger auditor. The schedule is parsed eagerly
// so a bad spec fails at startup.
func NewLedgerAuditor(cfg LedgerAuditorConfig) (*LedgerAuditor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", cfg.Schedule, err)
	}

	a := &LedgerAuditor{
		auditor:  cfg.Auditor,
		reporter: cfg.Reporter,
		schedule: cfg.Schedule,
		timeout:  cfg.Timeout,
	}
	a.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := a.cron.AddFunc(cfg.Schedule, a.runScheduled); err != nil {
		return nil, fmt.Errorf("schedule audit: %w", err)
	}
	return a, nil
}

// Start begins the audit schedule
func (a *LedgerAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.cron.Start()
	slog.Info("ledger auditor started", slog.String("schedule", a.schedule))
}

// Stop halts the schedule and waits for a run in progress to finish
func (a *LedgerAuditor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()

	<-a.cron.Stop().Done()
	slog.Info("ledger auditor stopped")
}

func (a *LedgerAuditor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if _, err := a.RunOnce(ctx); err != nil {
		slog.Error("ledger audit failed", slog.String("error", err.Error()))
	}
}

// RunOnce performs one audit (for testing or manual trigger) and reports it
func (a *LedgerAuditor) RunOnce(ctx context.Context) (*model.OwnershipAudit, error) {
	audit, err := a.auditor.AuditOwnership(ctx)
	if err != nil {
		if a.reporter != nil {
			a.reporter.RecordAuditFailure()
		}
		return nil, err
	}

	if a.reporter != nil {
		a.reporter.RecordAudit(audit)
	}

	if audit.Clean() {
		slog.Debug("ledger audit clean",
			slog.Int("goodjobs", audit.GoodJobs),
			slog.Int("transfers", audit.Transfers),
		)
		return audit, nil
	}

	slog.Warn("ledger audit found violations",
		slog.Any("admin_owned", audit.AdminOwned),
		slog.Any("owner_mismatches", audit.OwnerMismatches),
		slog.Int("goodjobs", audit.GoodJobs),
	)
	return audit, nil
}

// IsRunning returns whether the schedule is active
func (a *LedgerAuditor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
