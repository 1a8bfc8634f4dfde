// Package schedule submits recurring healing runs defined in a YAML file.
package schedule

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler decides when recurring healing runs are submitted. The
// tracker follows one run at a time, so at most one scheduled run is
// dispatched at once, and only while the tracker is free; an entry that
// comes due during a live run stays due and is dispatched on a later
// tick instead of superseding the run.
type Scheduler struct {
	entries map[string]Entry
	parser  cron.Parser

	mu       sync.Mutex
	lastRun  map[string]time.Time
	active   string // entry name currently in flight, "" when none
	stopChan chan struct{}
}

// NewScheduler creates a scheduler over the given entries
func NewScheduler(entries []Entry) (*Scheduler, error) {
	s := &Scheduler{
		entries:  make(map[string]Entry),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:  make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		s.entries[e.Name] = e
	}

	return s, nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next scheduled submission time for an entry
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(e.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// Due reports whether an entry's cron schedule has fired since its last
// dispatch. A deferred entry stays due until it is actually dispatched.
func (s *Scheduler) Due(name string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dueLocked(name, now)
}

func (s *Scheduler) dueLocked(name string, now time.Time) bool {
	e, ok := s.entries[name]
	if !ok {
		return false
	}

	sched, err := s.parser.Parse(e.Cron)
	if err != nil {
		return false
	}

	last := s.lastRun[name]
	if last.IsZero() {
		last = now.Add(-24 * time.Hour)
	}

	return now.After(sched.Next(last))
}

// Active returns the name of the scheduled entry currently in flight,
// or "" when none is.
func (s *Scheduler) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// GetEntry returns the entry for a name
func (s *Scheduler) GetEntry(name string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return e, ok
}

// ListEntries returns all schedule names in stable order
func (s *Scheduler) ListEntries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedNamesLocked()
}

func (s *Scheduler) sortedNamesLocked() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dispatchDue submits the first due entry, provided the tracker is free
// and no scheduled run is already in flight. When the gate is closed
// nothing is marked dispatched, so deferred entries are retried on the
// next tick rather than dropped.
func (s *Scheduler) dispatchDue(now time.Time, idle func() bool, run func(Entry) error) {
	s.mu.Lock()
	if s.active != "" || !idle() {
		s.mu.Unlock()
		return
	}

	var picked *Entry
	for _, name := range s.sortedNamesLocked() {
		if s.dueLocked(name, now) {
			e := s.entries[name]
			picked = &e
			break
		}
	}
	if picked == nil {
		s.mu.Unlock()
		return
	}

	s.active = picked.Name
	s.lastRun[picked.Name] = now
	s.mu.Unlock()

	go func(e Entry) {
		if err := run(e); err != nil {
			log.Printf("scheduled run %s failed: %v", e.Name, err)
		}
		s.mu.Lock()
		s.active = ""
		s.mu.Unlock()
	}(*picked)
}

// Start begins the scheduler loop. idle reports whether the tracker can
// accept a submission right now; run submits the entry and blocks until
// its run leaves the tracker.
func (s *Scheduler) Start(idle func() bool, run func(Entry) error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.dispatchDue(now, idle, run)
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
