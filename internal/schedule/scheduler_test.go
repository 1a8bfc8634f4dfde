package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validEntry() Entry {
	return Entry{
		Name:       "nightly-widgets",
		Cron:       "0 22 * * *",
		RepoURL:    "https://github.com/acme/widgets",
		TeamName:   "Acme",
		LeaderName: "Lead",
	}
}

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 22 * * *", false},   // 10 PM daily
		{"0 12 * * 1-5", false}, // noon weekdays
		{"*/5 * * * *", false},  // every 5 minutes
		{"invalid", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestEntry_Validate(t *testing.T) {
	e := validEntry()
	if err := e.Validate(); err != nil {
		t.Errorf("Valid entry should not error: %v", err)
	}

	e.Name = ""
	if err := e.Validate(); err == nil {
		t.Error("Empty name should error")
	}

	e = validEntry()
	e.TeamName = "Team!"
	if err := e.Validate(); err == nil {
		t.Error("Invalid team name should error")
	}
}

func TestScheduler_NextRun(t *testing.T) {
	sched, err := NewScheduler([]Entry{validEntry()})
	if err != nil {
		t.Fatal(err)
	}

	next := sched.NextRun("nightly-widgets")
	if next.IsZero() {
		t.Error("NextRun should return a time")
	}
	if !next.After(time.Now()) {
		t.Error("NextRun should be in the future")
	}
}

func TestScheduler_Due(t *testing.T) {
	e := validEntry()
	e.Cron = "* * * * *" // Every minute

	sched, err := NewScheduler([]Entry{e})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()

	// Last dispatch two minutes ago: due again.
	sched.lastRun[e.Name] = now.Add(-2 * time.Minute)
	if !sched.Due(e.Name, now) {
		t.Error("entry should be due after its cron interval passed")
	}

	// Dispatched right now: not due.
	sched.lastRun[e.Name] = now
	if sched.Due(e.Name, now) {
		t.Error("entry should not be due right after dispatch")
	}

	if sched.Due("unknown", now) {
		t.Error("unknown entry should never be due")
	}
}

func TestDispatchDeferredWhileTrackerBusy(t *testing.T) {
	e := validEntry()
	e.Cron = "* * * * *"

	sched, err := NewScheduler([]Entry{e})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	sched.lastRun[e.Name] = now.Add(-2 * time.Minute)

	ran := make(chan Entry, 1)
	run := func(e Entry) error {
		ran <- e
		return nil
	}

	// A live run keeps the gate closed: nothing is dispatched and the
	// entry stays due for the next tick.
	sched.dispatchDue(now, func() bool { return false }, run)
	select {
	case got := <-ran:
		t.Fatalf("dispatched %s while the tracker was busy", got.Name)
	default:
	}
	if !sched.Due(e.Name, now) {
		t.Error("deferred entry should remain due")
	}

	// Gate open: the entry is dispatched and marked.
	sched.dispatchDue(now, func() bool { return true }, run)
	select {
	case got := <-ran:
		if got.Name != e.Name {
			t.Errorf("dispatched %q, want %q", got.Name, e.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("entry was never dispatched")
	}
	if sched.Due(e.Name, now) {
		t.Error("dispatched entry should no longer be due")
	}
}

func TestDispatchSingleFlight(t *testing.T) {
	a := validEntry()
	a.Name = "a-nightly"
	a.Cron = "* * * * *"
	b := validEntry()
	b.Name = "b-nightly"
	b.Cron = "* * * * *"

	sched, err := NewScheduler([]Entry{a, b})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	sched.lastRun[a.Name] = now.Add(-2 * time.Minute)
	sched.lastRun[b.Name] = now.Add(-2 * time.Minute)

	started := make(chan Entry, 2)
	release := make(chan struct{})
	run := func(e Entry) error {
		started <- e
		<-release
		return nil
	}

	// Both entries are due; only the first is dispatched.
	sched.dispatchDue(now, func() bool { return true }, run)
	first := <-started
	if first.Name != a.Name {
		t.Errorf("first dispatch = %q, want %q (stable order)", first.Name, a.Name)
	}
	if sched.Active() != a.Name {
		t.Errorf("Active() = %q, want %q", sched.Active(), a.Name)
	}

	// While a run is in flight, further ticks dispatch nothing, even
	// though the tracker gate reports free.
	sched.dispatchDue(now, func() bool { return true }, run)
	select {
	case got := <-started:
		t.Fatalf("dispatched %s while %s was still in flight", got.Name, a.Name)
	default:
	}
	if !sched.Due(b.Name, now) {
		t.Error("second entry should remain due")
	}

	// After the first run finishes the next tick picks up the second.
	close(release)
	for i := 0; sched.Active() != ""; i++ {
		if i > 100 {
			t.Fatal("first run never released the in-flight slot")
		}
		time.Sleep(10 * time.Millisecond)
	}
	sched.dispatchDue(now, func() bool { return true }, run)
	second := <-started
	if second.Name != b.Name {
		t.Errorf("second dispatch = %q, want %q", second.Name, b.Name)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	content := `
schedules:
  - name: nightly-widgets
    cron: "0 22 * * *"
    repo_url: https://github.com/acme/widgets
    team_name: Acme
    leader_name: Lead
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(f.Schedules) != 1 || f.Schedules[0].Name != "nightly-widgets" {
		t.Errorf("schedules = %+v", f.Schedules)
	}
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(f.Schedules) != 0 {
		t.Errorf("schedules = %+v, want none", f.Schedules)
	}
}

func TestLoadFileRejectsBadEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	content := `
schedules:
  - name: bad
    cron: "not a cron"
    repo_url: https://github.com/acme/widgets
    team_name: Acme
    leader_name: Lead
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for invalid cron")
	}
}
