// Package maintenance runs the scheduled housekeeping jobs: pruning the
// audit trail and sweeping pending-event queues that no longer belong to
// any subscription.
package maintenance

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dicomflow/upsrs/internal/auditlog"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/store"
)

// Config wires the janitor's collaborators.
type Config struct {
	Schedule       string
	AuditRepo      *auditlog.Repo
	AuditRetention time.Duration
	Pending        *notify.PendingQueue
	Subscriptions  *store.SubscriptionStore
}

// Janitor owns the cron scheduler.
type Janitor struct {
	cron           *cron.Cron
	auditRepo      *auditlog.Repo
	auditRetention time.Duration
	pending        *notify.PendingQueue
	subs           *store.SubscriptionStore
}

// New creates a janitor with the sweep registered on the given schedule.
func New(cfg Config) (*Janitor, error) {
	j := &Janitor{
		cron:           cron.New(),
		auditRepo:      cfg.AuditRepo,
		auditRetention: cfg.AuditRetention,
		pending:        cfg.Pending,
		subs:           cfg.Subscriptions,
	}
	if _, err := j.cron.AddFunc(cfg.Schedule, j.Sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
	log.Printf("[maintenance] janitor started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	log.Printf("[maintenance] janitor stopped")
}

// Sweep runs one housekeeping pass.
func (j *Janitor) Sweep() {
	if j.pending != nil && j.subs != nil {
		dropped := j.pending.PurgeIf(func(subscriberID string) bool {
			return len(j.subs.GetBySubscriber(subscriberID)) > 0
		})
		if dropped > 0 {
			log.Printf("[maintenance] purged pending queues for %d orphaned subscribers", dropped)
		}
	}
	if j.auditRepo != nil && j.auditRetention > 0 {
		removed, err := j.auditRepo.Prune(j.auditRetention)
		if err != nil {
			log.Printf("[maintenance] audit prune failed: %v", err)
		} else if removed > 0 {
			log.Printf("[maintenance] pruned %d audit rows", removed)
		}
	}
}
