package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleCoordinationLog = `# Coordination Log

## STATUS

| Agent | Status | Updated |
|-------|--------|---------|
| guardian | spawned | 2025-06-01T12:00:00Z |
| builder | spawned | 2025-06-01T12:05:00Z |

## FILE LOCKS

| File | Agent | Acquired |
|------|-------|----------|
| src/ | builder | 2025-06-01T12:05:00Z |
| tests/ | other-session | 2025-06-01T11:50:00Z |

## EVENT LOG

- 2025-06-01T12:00:00Z [guardian] spawned: spawned with 1 units
`

func TestFileCoordinationLogRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "COMMS.md")
	if err := os.WriteFile(path, []byte(sampleCoordinationLog), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	log := NewFileCoordinationLog(path)
	view, err := log.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(view.Locks) != 2 {
		t.Fatalf("expected 2 locks, got %d", len(view.Locks))
	}
	if view.Locks["src/"] != "builder" {
		t.Errorf("expected src/ held by builder, got %q", view.Locks["src/"])
	}
	if view.Locks["tests/"] != "other-session" {
		t.Errorf("expected tests/ held by other-session, got %q", view.Locks["tests/"])
	}

	if len(view.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(view.Sessions))
	}
	guardian := view.Sessions["guardian"]
	if guardian.Status != "spawned" {
		t.Errorf("expected guardian status spawned, got %q", guardian.Status)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !guardian.UpdatedAt.Equal(want) {
		t.Errorf("expected guardian updated at %v, got %v", want, guardian.UpdatedAt)
	}

	if view.ConflictsWith("guardian", []string{"src/"}) != true {
		t.Error("expected src/ to conflict for guardian")
	}
	if view.ConflictsWith("builder", []string{"src/"}) != false {
		t.Error("expected builder's own lock not to conflict")
	}
}

func TestFileCoordinationLogMissingFile(t *testing.T) {
	log := NewFileCoordinationLog(filepath.Join(t.TempDir(), "missing.md"))

	view, err := log.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(view.Locks) != 0 || len(view.Sessions) != 0 {
		t.Error("expected empty view for missing log")
	}
	if view.ConflictsWith("anyone", []string{"src/"}) {
		t.Error("expected no conflicts for missing log")
	}
}

func TestFileCoordinationLogAppendCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "COMMS.md")
	log := NewFileCoordinationLog(path)

	event := CoordinationEvent{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		AgentID:   "guardian",
		Type:      "spawned",
		Message:   "spawned with 2 units",
	}
	if err := log.Append(context.Background(), event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[guardian] spawned: spawned with 2 units") {
		t.Errorf("expected event line in log, got:\n%s", content)
	}

	// The appended event also refreshes the STATUS table
	view, err := log.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	status, ok := view.Sessions["guardian"]
	if !ok {
		t.Fatal("expected guardian STATUS row after append")
	}
	if status.Status != "spawned" {
		t.Errorf("expected status spawned, got %q", status.Status)
	}
}

func TestFileCoordinationLogAppendUpdatesExistingStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "COMMS.md")
	if err := os.WriteFile(path, []byte(sampleCoordinationLog), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	log := NewFileCoordinationLog(path)
	event := CoordinationEvent{
		Timestamp: time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		AgentID:   "guardian",
		Type:      "reaped",
		Message:   "exit code 0",
	}
	if err := log.Append(context.Background(), event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	view, err := log.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(view.Sessions) != 2 {
		t.Fatalf("expected status row updated in place, got %d rows", len(view.Sessions))
	}
	if view.Sessions["guardian"].Status != "reaped" {
		t.Errorf("expected guardian status reaped, got %q", view.Sessions["guardian"].Status)
	}

	// Locks held by other sessions are untouched by appends
	if view.Locks["tests/"] != "other-session" {
		t.Errorf("expected tests/ lock preserved, got %q", view.Locks["tests/"])
	}
}
