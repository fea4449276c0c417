package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FileQueueInspector counts pending work from per-agent task files:
// .sentinel/queue/<agent-id>.md, one unchecked markdown item per unit
// of work. A missing file means no pending work.
type FileQueueInspector struct {
	Dir string
}

// NewFileQueueInspector creates an inspector over a queue directory
func NewFileQueueInspector(dir string) *FileQueueInspector {
	return &FileQueueInspector{Dir: dir}
}

// PendingWork counts unchecked "- [ ]" items in the agent's task file
func (q *FileQueueInspector) PendingWork(ctx context.Context, agentID string) (int, error) {
	path := filepath.Join(q.Dir, agentID+".md")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "- [ ]") {
			count++
		}
	}
	return count, nil
}
