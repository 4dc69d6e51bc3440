// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/praxis-labs/loom-mcp/internal/store"
)

// Scheduler periodically reclaims expired memories. Expiry is otherwise
// lazy, so this only bounds how long dead rows occupy the table.
type Scheduler struct {
	memories *store.MemoryStore
	interval time.Duration
	stopChan chan bool
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(db *gorm.DB, intervalMinutes int) *Scheduler {
	return &Scheduler{
		memories: store.NewMemoryStore(db),
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
				s.cleanExpired()
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

func (s *Scheduler) cleanExpired() {
	removed, err := s.memories.CleanExpiredMemories()
	if err != nil {
		log.Printf("Failed to clean expired memories: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Reclaimed %d expired memories", removed)
	}
}
