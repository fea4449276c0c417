package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/events"
	"github.com/sentinel-ops/sentinel/internal/repair"
)

func TestEventStorage(t *testing.T) {
	// Create in-memory database for testing
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	t.Run("StoreEvent", func(t *testing.T) {
		event := &events.Event{
			ID:        "evt-001",
			Type:      events.EventTypeCheckCompleted,
			Timestamp: time.Now(),
			CheckID:   "dev-server-http",
			Severity:  events.SeverityInfo,
			Message:   "check completed: HEALTHY",
			Data: map[string]interface{}{
				"status":   "HEALTHY",
				"duration": 42,
			},
		}

		if err := store.StoreEvent(ctx, event); err != nil {
			t.Fatalf("Failed to store event: %v", err)
		}
	})

	t.Run("GetRecentEvents", func(t *testing.T) {
		got, err := store.GetRecentEvents(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to get events: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(got))
		}
		if got[0].CheckID != "dev-server-http" {
			t.Errorf("Expected check ID dev-server-http, got %s", got[0].CheckID)
		}
		if got[0].Data["status"] != "HEALTHY" {
			t.Errorf("Expected data status HEALTHY, got %v", got[0].Data["status"])
		}
	})

	t.Run("GetEventsFiltered", func(t *testing.T) {
		other := events.NewRepairEvent(events.EventTypeRepairCompleted, "dev-server-restart",
			events.SeverityWarning, "repair finished: PARTIAL", nil)
		if err := store.StoreEvent(ctx, other); err != nil {
			t.Fatalf("Failed to store event: %v", err)
		}

		got, err := store.GetEvents(ctx, events.Filter{Type: events.EventTypeRepairCompleted})
		if err != nil {
			t.Fatalf("Failed to get events: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 filtered event, got %d", len(got))
		}
		if got[0].WorkflowID != "dev-server-restart" {
			t.Errorf("Expected workflow dev-server-restart, got %s", got[0].WorkflowID)
		}

		got, err = store.GetEvents(ctx, events.Filter{Severity: events.SeverityWarning})
		if err != nil {
			t.Fatalf("Failed to get events: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 warning event, got %d", len(got))
		}
	})
}

func TestCheckResultStorage(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	first := &checks.Result{
		CheckID:   "build-errors",
		CheckName: "Build errors",
		Component: "build",
		Tier:      checks.TierLight,
		Status:    checks.StatusError,
		Message:   "failure pattern matched: error TS",
		Output:    "error TS2345: argument type mismatch",
		Duration:  120 * time.Millisecond,
		Timestamp: time.Now().Add(-time.Minute),
	}
	second := &checks.Result{
		CheckID:   "build-errors",
		CheckName: "Build errors",
		Component: "build",
		Tier:      checks.TierLight,
		Status:    checks.StatusHealthy,
		Message:   "success pattern matched",
		Duration:  80 * time.Millisecond,
		Timestamp: time.Now(),
	}

	for _, r := range []*checks.Result{first, second} {
		if err := store.StoreCheckResult(ctx, r); err != nil {
			t.Fatalf("Failed to store check result: %v", err)
		}
	}

	t.Run("GetRecentCheckResults", func(t *testing.T) {
		got, err := store.GetRecentCheckResults(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to get check results: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(got))
		}
		// Most recent first
		if got[0].Status != checks.StatusHealthy {
			t.Errorf("Expected most recent result HEALTHY, got %s", got[0].Status)
		}
		if got[1].Tier != checks.TierLight {
			t.Errorf("Expected tier LIGHT, got %s", got[1].Tier)
		}
		if got[1].Duration != 120*time.Millisecond {
			t.Errorf("Expected duration 120ms, got %v", got[1].Duration)
		}
	})

	t.Run("GetLatestCheckResult", func(t *testing.T) {
		got, err := store.GetLatestCheckResult(ctx, "build-errors")
		if err != nil {
			t.Fatalf("Failed to get latest check result: %v", err)
		}
		if got.Status != checks.StatusHealthy {
			t.Errorf("Expected latest result HEALTHY, got %s", got.Status)
		}
	})

	t.Run("GetLatestCheckResultUnknownCheck", func(t *testing.T) {
		if _, err := store.GetLatestCheckResult(ctx, "no-such-check"); err == nil {
			t.Error("Expected error for unknown check")
		}
	})
}

func TestRepairRecordStorage(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	record := &repair.ExecutionRecord{
		ID:         "rec-001",
		WorkflowID: "dev-server-restart",
		Timestamp:  time.Now(),
		Steps: []repair.StepResult{
			{Name: "kill stale server", Outcome: repair.OutcomeSucceeded, Attempts: 1, Duration: 50 * time.Millisecond},
			{Name: "start dev server", Outcome: repair.OutcomeFailed, Detail: "timed out after 1m0s", Attempts: 2, Duration: 2 * time.Minute},
			{Name: "verify port", Outcome: repair.OutcomeSkipped},
		},
		Overall:  repair.ResultFailed,
		Summary:  "1/3 steps succeeded",
		Duration: 2 * time.Minute,
	}

	if err := store.StoreRepairRecord(ctx, record); err != nil {
		t.Fatalf("Failed to store repair record: %v", err)
	}

	got, err := store.GetRecentRepairRecords(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get repair records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}

	restored := got[0]
	if restored.WorkflowID != "dev-server-restart" {
		t.Errorf("Expected workflow dev-server-restart, got %s", restored.WorkflowID)
	}
	if restored.Overall != repair.ResultFailed {
		t.Errorf("Expected overall FAILED, got %s", restored.Overall)
	}
	if len(restored.Steps) != 3 {
		t.Fatalf("Expected 3 step outcomes, got %d", len(restored.Steps))
	}
	// Step order is preserved
	if restored.Steps[0].Name != "kill stale server" {
		t.Errorf("Expected first step 'kill stale server', got %q", restored.Steps[0].Name)
	}
	if restored.Steps[1].Outcome != repair.OutcomeFailed {
		t.Errorf("Expected second step FAILED, got %s", restored.Steps[1].Outcome)
	}
	if restored.Steps[1].Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", restored.Steps[1].Attempts)
	}
	if restored.Steps[2].Outcome != repair.OutcomeSkipped {
		t.Errorf("Expected third step SKIPPED, got %s", restored.Steps[2].Outcome)
	}
}
