package prompt

import (
	"strings"
	"testing"
	"time"

	"runvox/internal/models"
)

var today = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func sampleSnapshot() ([]models.ProcessSession, []models.WorkItem) {
	start := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	sessions := []models.ProcessSession{
		{ProcessName: "Invoice Bot", Status: models.StatusRunning, StartTime: start},
		{ProcessName: "Payroll Bot", Status: models.StatusTerminated, StartTime: start, EndTime: &end},
	}
	items := []models.WorkItem{
		{ItemKey: "INV-1", ProcessName: "Invoice Bot", WorkqueueName: "Invoices", CompletedAt: &end},
	}
	return sessions, items
}

func TestBuildEmbedsSnapshotQuestionAndDate(t *testing.T) {
	t.Parallel()

	sessions, items := sampleSnapshot()
	got := Build("what processes are running", sessions, items, today)

	for _, want := range []string{
		"2026-10-16",
		"process_name: Invoice Bot",
		"process_status: Running",
		"process_status: Terminated",
		"item_key: INV-1",
		"workqueue_name: Invoices",
		"exception: null",
		"what processes are running",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	if !strings.HasSuffix(strings.TrimSpace(got), "what processes are running") {
		t.Fatalf("expected question to close the prompt:\n%s", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	sessions, items := sampleSnapshot()
	a := Build("how many items failed?", sessions, items, today)
	b := Build("how many items failed?", sessions, items, today)
	if a != b {
		t.Fatal("expected identical prompts for identical inputs")
	}
}

func TestBuildEmptySnapshot(t *testing.T) {
	t.Parallel()

	got := Build("anything running?", nil, nil, today)
	if strings.Count(got, "[]") != 2 {
		t.Fatalf("expected both snapshots rendered as empty lists:\n%s", got)
	}
}

func TestBuildKeepsQuestionVerbatim(t *testing.T) {
	t.Parallel()

	q := "what is 100% done for %s?"
	got := Build(q, nil, nil, today)
	if !strings.Contains(got, q) {
		t.Fatalf("question altered:\n%s", got)
	}
}
