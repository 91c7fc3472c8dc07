// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconcileScheduler periodically re-derives every cached total
// from the ledger. The cache is never authoritative; this sweep repairs
// any drift a crash or partial write left behind.
func (s *LedgerService) StartReconcileScheduler(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			repaired, err := s.ReconcileAll()
			if err != nil {
				log.Printf("[Reconcile] sweep failed: %v", err)
				return
			}
			if repaired > 0 {
				log.Printf("✅ Reconcile sweep repaired %d wallet cache(s)", repaired)
			}
		}),
	)
}
