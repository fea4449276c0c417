package events

import (
	"time"

	"github.com/google/uuid"
)

// NewCheckEvent creates an event tied to a health check.
func NewCheckEvent(eventType EventType, checkID string, severity Severity, message string, data map[string]interface{}) *Event {
	e := NewSimpleEvent(eventType, severity, message)
	e.CheckID = checkID
	if data != nil {
		e.Data = data
	}
	return e
}

// NewRepairEvent creates an event tied to a repair workflow.
func NewRepairEvent(eventType EventType, workflowID string, severity Severity, message string, data map[string]interface{}) *Event {
	e := NewSimpleEvent(eventType, severity, message)
	e.WorkflowID = workflowID
	if data != nil {
		e.Data = data
	}
	return e
}

// NewAgentEvent creates an event tied to a worker agent.
func NewAgentEvent(eventType EventType, agentID string, severity Severity, message string, data map[string]interface{}) *Event {
	e := NewSimpleEvent(eventType, severity, message)
	e.AgentID = agentID
	if data != nil {
		e.Data = data
	}
	return e
}

// NewSimpleEvent creates an event with no structured data.
func NewSimpleEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
	}
}
