package runstore

import (
	"testing"
	"time"

	"github.com/riftlabs/healwatch/internal/domain"
)

func sampleRecord(runID string, status domain.RunStatus) Record {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)
	return Record{
		RunID:      runID,
		Repository: "https://github.com/acme/widgets",
		TeamName:   "Acme",
		LeaderName: "Lead",
		BranchName: "ACME_LEAD_AI_Fix",
		Status:     status,
		Score:      domain.ScoreBreakdown{Base: 100, TimeBonus: 10, Final: 110},
		Results: &domain.Results{
			Repository:  "https://github.com/acme/widgets",
			TotalFixes:  3,
			RetryLimit:  5,
			FinalStatus: status,
			Fixes: []domain.FixRecord{
				{File: "app.py", BugType: domain.BugImport, LineNumber: 5, Status: domain.FixApplied,
					CommitMessage: "[AI-AGENT] Fix import issue in app.py",
					StrictOutput:  "IMPORT error in app.py line 5 → Fix: add missing import"},
			},
			CITimeline: []domain.TimelineEntry{
				{Iteration: 1, Status: domain.StatusPassed, Timestamp: "2024-01-01T00:05:00Z"},
			},
		},
		StartedAt:  &started,
		FinishedAt: &finished,
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveRun(sampleRecord("r1", domain.StatusPassed)); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("r1")
	if err != nil {
		t.Fatal(err)
	}

	if got.Status != domain.StatusPassed {
		t.Errorf("Status = %q, want PASSED", got.Status)
	}
	if got.Score.Final != 110 {
		t.Errorf("Score.Final = %d, want 110", got.Score.Final)
	}
	if got.Results == nil || len(got.Results.Fixes) != 1 {
		t.Fatalf("Results not round-tripped: %+v", got.Results)
	}
	if got.Results.Fixes[0].BugType != domain.BugImport {
		t.Errorf("fix bug type = %q, want IMPORT", got.Results.Fixes[0].BugType)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt lost")
	}
}

func TestStore_SaveRunIsUpsert(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := sampleRecord("r1", domain.StatusRunning)
	if err := store.SaveRun(rec); err != nil {
		t.Fatal(err)
	}
	rec.Status = domain.StatusFailed
	rec.Score = domain.ScoreBreakdown{Base: 100, Final: 100}
	if err := store.SaveRun(rec); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("run count = %d, want 1 after upsert", len(runs))
	}
	if runs[0].Status != domain.StatusFailed {
		t.Errorf("Status = %q, want FAILED", runs[0].Status)
	}
}

func TestStore_ListRunsFilterAndOrder(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, r := range []Record{
		sampleRecord("r1", domain.StatusPassed),
		sampleRecord("r2", domain.StatusFailed),
		sampleRecord("r3", domain.StatusPassed),
	} {
		if err := store.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	passed, err := store.ListRuns(ListOptions{Status: domain.StatusPassed})
	if err != nil {
		t.Fatal(err)
	}
	if len(passed) != 2 {
		t.Errorf("passed count = %d, want 2", len(passed))
	}

	limited, err := store.ListRuns(ListOptions{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited count = %d, want 1", len(limited))
	}
}

func TestStore_GetUnknownRun(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.GetRun("missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}
