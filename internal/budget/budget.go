package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// dateLayout is the calendar-day key used for the daily reset
const dateLayout = "2006-01-02"

// State is the persisted budget tracking state
type State struct {
	// SpentToday is the cumulative cost consumed since the last daily reset
	SpentToday float64 `json:"spent_today"`

	// LastResetDate is the calendar date (local time) of the last reset
	LastResetDate string `json:"last_reset_date"`

	// TotalSpent is the all-time cumulative cost
	TotalSpent float64 `json:"total_spent"`

	// Reservations counts granted reservations since the last reset
	Reservations int `json:"reservations"`

	// LastUpdated timestamp
	LastUpdated time.Time `json:"last_updated"`
}

// Tracker enforces the daily cost allowance shared by the health and
// orchestration loops. Reserve is the single mutation point: it checks
// and increments spend under one lock so concurrent callers cannot
// jointly exceed the limit.
type Tracker struct {
	config *Config
	state  *State
	mu     sync.RWMutex // Protects state

	// Alert throttling
	lastExhaustedTime time.Time

	// now is replaceable in tests
	now func() time.Time
}

// NewTracker creates a new daily budget tracker
func NewTracker(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Tracker{
		config: cfg,
		now:    time.Now,
		state: &State{
			LastResetDate: time.Now().Format(dateLayout),
			LastUpdated:   time.Now(),
		},
	}

	// Try to load existing state from disk (for restart recovery)
	if cfg.PersistStatePath != "" {
		if err := t.loadState(); err != nil {
			fmt.Printf("Warning: failed to load budget state from %s: %v (starting fresh)\n", cfg.PersistStatePath, err)
		}
	}

	t.mu.Lock()
	t.resetIfNewDayLocked()
	t.mu.Unlock()

	return t, nil
}

// Reserve grants amount against today's allowance and records the spend.
// It refuses, leaving state unchanged, when spend + amount would exceed
// the daily limit. The check and the increment happen under one lock.
func (t *Tracker) Reserve(amount float64) bool {
	if !t.config.Enabled {
		return true
	}

	if amount < 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDayLocked()

	if t.config.DailyLimit > 0 && t.state.SpentToday+amount > t.config.DailyLimit {
		t.emitExhaustedAlertLocked()
		return false
	}

	t.state.SpentToday += amount
	t.state.TotalSpent += amount
	t.state.Reservations++
	t.state.LastUpdated = t.now()

	if err := t.persistStateLocked(); err != nil {
		fmt.Printf("Warning: failed to persist budget state: %v\n", err)
	}

	return true
}

// ResetIfNewDay zeroes today's spend if the calendar day has changed
// since the last reset. Idempotent within a day; this is the only path
// that clears spend.
func (t *Tracker) ResetIfNewDay() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDayLocked()
}

// Spent returns the cost consumed so far today
func (t *Tracker) Spent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state.SpentToday
}

// Remaining returns the allowance left today (0 when exhausted,
// the full limit when budgeting is disabled or unlimited)
func (t *Tracker) Remaining() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.config.Enabled || t.config.DailyLimit <= 0 {
		return t.config.DailyLimit
	}

	remaining := t.config.DailyLimit - t.state.SpentToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Limit returns the configured daily limit
func (t *Tracker) Limit() float64 {
	return t.config.DailyLimit
}

// DeepCheckCost returns the cost to charge for a deep check, preferring
// the check's own estimate when it has one
func (t *Tracker) DeepCheckCost(estimate float64) float64 {
	if estimate > 0 {
		return estimate
	}
	return t.config.DefaultDeepCheckCost
}

// Stats is a point-in-time snapshot for status reporting
type Stats struct {
	SpentToday    float64   `json:"spent_today"`
	DailyLimit    float64   `json:"daily_limit"`
	TotalSpent    float64   `json:"total_spent"`
	Reservations  int       `json:"reservations"`
	LastResetDate string    `json:"last_reset_date"`
	LastUpdated   time.Time `json:"last_updated"`
}

// GetStats returns current budget statistics
func (t *Tracker) GetStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Stats{
		SpentToday:    t.state.SpentToday,
		DailyLimit:    t.config.DailyLimit,
		TotalSpent:    t.state.TotalSpent,
		Reservations:  t.state.Reservations,
		LastResetDate: t.state.LastResetDate,
		LastUpdated:   t.state.LastUpdated,
	}
}

// resetIfNewDayLocked performs the daily reset check
// MUST be called with mu lock held
func (t *Tracker) resetIfNewDayLocked() {
	today := t.now().Format(dateLayout)
	if t.state.LastResetDate == today {
		return
	}

	t.state.SpentToday = 0
	t.state.Reservations = 0
	t.state.LastResetDate = today
	t.state.LastUpdated = t.now()

	if err := t.persistStateLocked(); err != nil {
		fmt.Printf("Warning: failed to persist budget state: %v\n", err)
	}
}

// emitExhaustedAlertLocked prints an exhaustion notice, throttled to
// once per five minutes. MUST be called with mu lock held.
func (t *Tracker) emitExhaustedAlertLocked() {
	now := t.now()
	if now.Sub(t.lastExhaustedTime) < 5*time.Minute {
		return
	}

	fmt.Printf("Budget exhausted: $%.2f/$%.2f spent today, deep diagnostics paused until tomorrow\n",
		t.state.SpentToday, t.config.DailyLimit)
	t.lastExhaustedTime = now
}

// persistStateLocked saves the budget state to disk
// MUST be called with mu lock held
func (t *Tracker) persistStateLocked() error {
	if t.config.PersistStatePath == "" {
		return nil // Persistence disabled
	}

	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.config.PersistStatePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Atomic write: temp file then rename
	tmpPath := t.config.PersistStatePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, t.config.PersistStatePath); err != nil {
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// loadState loads the budget state from disk
func (t *Tracker) loadState() error {
	if t.config.PersistStatePath == "" {
		return nil // Persistence disabled
	}

	data, err := os.ReadFile(t.config.PersistStatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state file yet, start fresh
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	if state.LastResetDate == "" {
		state.LastResetDate = t.now().Format(dateLayout)
	}

	t.state = &state
	return nil
}
