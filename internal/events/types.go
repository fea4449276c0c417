package events

import (
	"context"
	"time"
)

// EventType represents the type of event recorded in the audit trail.
type EventType string

const (
	// Health monitoring events
	// EventTypeCheckCompleted indicates a health check finished and was classified
	EventTypeCheckCompleted EventType = "check_completed"
	// EventTypeCheckBatchCompleted indicates a full tier batch finished
	EventTypeCheckBatchCompleted EventType = "check_batch_completed"
	// EventTypeCheckEscalated indicates an ERROR check escalated to a repair workflow
	EventTypeCheckEscalated EventType = "check_escalated"

	// Repair events
	// EventTypeRepairStarted indicates a repair workflow began execution
	EventTypeRepairStarted EventType = "repair_started"
	// EventTypeRepairCompleted indicates a repair workflow finished (any result)
	EventTypeRepairCompleted EventType = "repair_completed"
	// EventTypeRepairRejected indicates a workflow was refused before any step ran
	EventTypeRepairRejected EventType = "repair_rejected"

	// Budget events
	// EventTypeBudgetExhausted indicates a reservation was refused
	EventTypeBudgetExhausted EventType = "budget_exhausted"
	// EventTypeBudgetReset indicates the daily allowance rolled over
	EventTypeBudgetReset EventType = "budget_reset"

	// Orchestration events
	// EventTypeAgentSpawned indicates a worker agent process was started
	EventTypeAgentSpawned EventType = "agent_spawned"
	// EventTypeAgentReaped indicates a finished worker process was collected
	EventTypeAgentReaped EventType = "agent_reaped"
	// EventTypeAgentSkipped indicates a candidate was passed over this cycle
	EventTypeAgentSkipped EventType = "agent_skipped"
	// EventTypeCycleSummary indicates a scheduling cycle completed
	EventTypeCycleSummary EventType = "cycle_summary"

	// Supervisor lifecycle events
	// EventTypeSupervisorStarted indicates the supervisor loops came up
	EventTypeSupervisorStarted EventType = "supervisor_started"
	// EventTypeSupervisorStopped indicates a clean shutdown
	EventTypeSupervisorStopped EventType = "supervisor_stopped"
	// EventTypeLoopError indicates a control-loop defect that was logged and survived
	EventTypeLoopError EventType = "loop_error"
)

// Severity represents the severity level of an event.
type Severity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo Severity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning Severity = "warning"
	// SeverityError indicates error events
	SeverityError Severity = "error"
	// SeverityCritical indicates critical events requiring immediate attention
	SeverityCritical Severity = "critical"
)

// Event is one entry in the append-only audit trail. Both supervisor
// loops emit these; nothing in the core consumes them back.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// CheckID is the health check involved, if any
	CheckID string `json:"check_id,omitempty"`
	// WorkflowID is the repair workflow involved, if any
	WorkflowID string `json:"workflow_id,omitempty"`
	// AgentID is the worker agent involved, if any
	AgentID string `json:"agent_id,omitempty"`
	// Severity is the severity level of this event
	Severity Severity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventStore defines the interface for persisting and querying events.
type EventStore interface {
	// StoreEvent appends a new event to the audit trail
	StoreEvent(ctx context.Context, event *Event) error

	// GetRecentEvents retrieves the most recent events up to the specified limit
	GetRecentEvents(ctx context.Context, limit int) ([]*Event, error)

	// GetEvents retrieves events matching the given filter
	GetEvents(ctx context.Context, filter Filter) ([]*Event, error)
}

// Filter defines criteria for querying events.
type Filter struct {
	// Type filters events by event type
	Type EventType
	// CheckID filters events by health check
	CheckID string
	// WorkflowID filters events by repair workflow
	WorkflowID string
	// AgentID filters events by worker agent
	AgentID string
	// Severity filters events by severity level
	Severity Severity
	// AfterTime filters events that occurred after this time
	AfterTime time.Time
	// Limit limits the number of events returned
	Limit int
}
