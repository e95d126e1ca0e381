// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"log"
	"time"

	"github.com/tejzpr/huginn-mcp/internal/audit"
	"gorm.io/gorm"
)

// Scheduler runs the audit verifier on a fixed interval and logs any
// integrity issues it finds. Verification is read-only, so a run can
// never disturb live traffic.
type Scheduler struct {
	db       *gorm.DB
	interval time.Duration
	stopChan chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(db *gorm.DB, intervalMinutes int) *Scheduler {
	return &Scheduler{
		db:       db,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.runVerification()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopChan <- true
}

// runVerification replays the audit trail once
func (s *Scheduler) runVerification() {
	report, err := audit.Verify(s.db)
	if err != nil {
		log.Printf("Audit verification failed to run: %v", err)
		return
	}
	if report.OK {
		log.Printf("Audit verification OK (%d records, %d entities)", report.Records, report.Entities)
		return
	}
	log.Printf("Audit verification found %d issue(s):", len(report.Issues))
	for _, issue := range report.Issues {
		log.Printf("  %s", issue)
	}
}
