package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Section headers in the shared coordination file
const (
	statusHeader = "## STATUS"
	locksHeader  = "## FILE LOCKS"
	logHeader    = "## EVENT LOG"
)

// commsTimeLayout is the timestamp format used in the coordination file
const commsTimeLayout = time.RFC3339

// FileCoordinationLog implements CoordinationLog over a shared
// markdown status file maintained by all sessions: a STATUS table, a
// FILE LOCKS table mapping resources to the agent holding them, and
// an append-only EVENT LOG.
type FileCoordinationLog struct {
	mu   sync.Mutex
	path string
}

// NewFileCoordinationLog creates a coordination log backed by the
// given file. The file is created on first append.
func NewFileCoordinationLog(path string) *FileCoordinationLog {
	return &FileCoordinationLog{path: path}
}

// Read parses the current STATUS and FILE LOCKS tables.
func (c *FileCoordinationLog) Read(ctx context.Context) (*CoordinationView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := &CoordinationView{
		Sessions: make(map[string]SessionStatus),
		Locks:    make(map[string]string),
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return view, nil // No log yet: nothing is claimed
		}
		return nil, fmt.Errorf("failed to read coordination log: %w", err)
	}

	for _, row := range tableRows(string(data), statusHeader) {
		if len(row) < 2 {
			continue
		}
		status := SessionStatus{AgentID: row[0], Status: row[1]}
		if len(row) >= 3 {
			if ts, err := time.Parse(commsTimeLayout, row[2]); err == nil {
				status.UpdatedAt = ts
			}
		}
		view.Sessions[status.AgentID] = status
	}

	for _, row := range tableRows(string(data), locksHeader) {
		if len(row) < 2 {
			continue
		}
		view.Locks[row[0]] = row[1]
	}

	return view, nil
}

// Append writes one event line to the EVENT LOG and refreshes the
// agent's STATUS row.
func (c *FileCoordinationLog) Append(ctx context.Context, event CoordinationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := ""
	if data, err := os.ReadFile(c.path); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read coordination log: %w", err)
	}

	if content == "" {
		content = fmt.Sprintf("# Coordination Log\n\n%s\n\n| Agent | Status | Updated |\n|-------|--------|---------|\n\n%s\n\n| File | Agent | Acquired |\n|------|-------|----------|\n\n%s\n",
			statusHeader, locksHeader, logHeader)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	content = upsertStatusRow(content, event.AgentID, event.Type, ts)
	content += fmt.Sprintf("- %s [%s] %s: %s\n",
		ts.Format(commsTimeLayout), event.AgentID, event.Type, event.Message)

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("failed to rename coordination log: %w", err)
	}

	return nil
}

// tableRows extracts the data rows of the pipe table directly under
// the given section header. Header and separator rows are skipped.
func tableRows(content, header string) [][]string {
	var rows [][]string

	idx := strings.Index(content, header)
	if idx < 0 {
		return rows
	}
	section := content[idx+len(header):]
	if next := strings.Index(section, "\n## "); next >= 0 {
		section = section[:next]
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || strings.HasPrefix(line, "|-") {
			continue
		}
		parts := strings.Split(line, "|")
		var cells []string
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cells = append(cells, p)
			}
		}
		if len(cells) == 0 {
			continue
		}
		// Skip the header row
		if cells[0] == "Agent" || cells[0] == "File" {
			continue
		}
		rows = append(rows, cells)
	}

	return rows
}

// upsertStatusRow replaces or adds the STATUS table row for an agent
func upsertStatusRow(content, agentID, status string, ts time.Time) string {
	newRow := fmt.Sprintf("| %s | %s | %s |", agentID, status, ts.Format(commsTimeLayout))

	lines := strings.Split(content, "\n")
	inStatus := false
	lastTableLine := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			if inStatus {
				break
			}
			inStatus = trimmed == statusHeader
			continue
		}
		if !inStatus || !strings.HasPrefix(trimmed, "|") {
			continue
		}
		lastTableLine = i
		if strings.HasPrefix(trimmed, "| "+agentID+" ") {
			lines[i] = newRow
			return strings.Join(lines, "\n")
		}
	}

	if lastTableLine >= 0 {
		lines = append(lines[:lastTableLine+1],
			append([]string{newRow}, lines[lastTableLine+1:]...)...)
		return strings.Join(lines, "\n")
	}

	return content
}
