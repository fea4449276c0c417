package checks

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-ops/sentinel/internal/budget"
)

// countingProbe records invocations and returns fixed output
type countingProbe struct {
	output string
	err    error
	calls  int
}

func (p *countingProbe) Run(ctx context.Context) (string, error) {
	p.calls++
	return p.output, p.err
}

func newTestTracker(t *testing.T, limit float64) *budget.Tracker {
	t.Helper()
	cfg := budget.DefaultConfig()
	cfg.DailyLimit = limit
	cfg.PersistStatePath = filepath.Join(t.TempDir(), "budget-state.json")
	tracker, err := budget.NewTracker(cfg)
	require.NoError(t, err)
	return tracker
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(newTestTracker(t, 1.00), nil, nil)
	require.NoError(t, err)
	return engine
}

func TestRunTierRespectsTierBoundary(t *testing.T) {
	engine := newTestEngine(t)

	free := &countingProbe{output: "HEALTHY"}
	light := &countingProbe{output: "HEALTHY"}
	deep := &countingProbe{output: "HEALTHY"}

	require.NoError(t, engine.Register(&Definition{
		ID: "free-check", Tier: TierFree, Probe: free, SuccessPatterns: []string{"HEALTHY"},
	}))
	require.NoError(t, engine.Register(&Definition{
		ID: "light-check", Tier: TierLight, Probe: light, SuccessPatterns: []string{"HEALTHY"},
	}))
	require.NoError(t, engine.Register(&Definition{
		ID: "deep-check", Tier: TierDeep, Probe: deep, SuccessPatterns: []string{"HEALTHY"},
	}))

	report := engine.RunTier(context.Background(), TierFree)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "free-check", report.Results[0].CheckID)
	assert.Equal(t, 1, free.calls)
	assert.Equal(t, 0, light.calls, "FREE batch must never invoke a LIGHT check")
	assert.Equal(t, 0, deep.calls, "FREE batch must never invoke a DEEP check")

	report = engine.RunTier(context.Background(), TierLight)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, light.calls)
	assert.Equal(t, 0, deep.calls, "LIGHT batch must never invoke a DEEP check")

	report = engine.RunTier(context.Background(), TierDeep)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, deep.calls)
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name       string
		def        Definition
		output     string
		wantStatus Status
	}{
		{
			name: "success pattern matches",
			def: Definition{
				SuccessPatterns: []string{"HEALTHY"},
				FailurePatterns: []string{"UNHEALTHY"},
			},
			output:     "server HEALTHY",
			wantStatus: StatusHealthy,
		},
		{
			name: "failure pattern matches",
			def: Definition{
				SuccessPatterns: []string{"PORT_IN_USE"},
				FailurePatterns: []string{"PORT_FREE"},
			},
			output:     "PORT_FREE",
			wantStatus: StatusError,
		},
		{
			name: "failure takes precedence when both match",
			def: Definition{
				SuccessPatterns: []string{"HEALTHY"},
				FailurePatterns: []string{"UNHEALTHY"},
			},
			output:     "UNHEALTHY", // contains "HEALTHY" as a substring too
			wantStatus: StatusError,
		},
		{
			name: "no pattern matches",
			def: Definition{
				SuccessPatterns: []string{"OK"},
				FailurePatterns: []string{"FAIL"},
			},
			output:     "something else entirely",
			wantStatus: StatusUnknown,
		},
		{
			name: "degraded pattern after failure before success",
			def: Definition{
				SuccessPatterns:  []string{"status"},
				DegradedPatterns: []string{"SLOW"},
				FailurePatterns:  []string{"DOWN"},
			},
			output:     "status SLOW",
			wantStatus: StatusDegraded,
		},
		{
			name: "regex pattern",
			def: Definition{
				FailurePatterns: []string{`re:error TS\d+`},
			},
			output:     "src/app.ts(3,1): error TS2304: Cannot find name",
			wantStatus: StatusError,
		},
		{
			name: "literal match is case-insensitive",
			def: Definition{
				SuccessPatterns: []string{"healthy"},
			},
			output:     "HEALTHY",
			wantStatus: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(&tt.def, tt.output)
			assert.Equal(t, tt.wantStatus, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestProbeInvocationFailureIsUnreachable(t *testing.T) {
	engine := newTestEngine(t)

	require.NoError(t, engine.Register(&Definition{
		ID:              "unreachable",
		Tier:            TierFree,
		Probe:           &countingProbe{err: fmt.Errorf("connection refused: target process not running")},
		SuccessPatterns: []string{"OK"},
	}))
	require.NoError(t, engine.Register(&Definition{
		ID:              "pattern-error",
		Tier:            TierFree,
		Probe:           &countingProbe{output: "FAIL"},
		FailurePatterns: []string{"FAIL"},
	}))

	report := engine.RunTier(context.Background(), TierFree)
	require.Len(t, report.Results, 2)

	unreachable := report.Results[0]
	assert.Equal(t, StatusError, unreachable.Status)
	assert.True(t, unreachable.Unreachable)
	assert.Contains(t, unreachable.Message, "connection refused")

	patternErr := report.Results[1]
	assert.Equal(t, StatusError, patternErr.Status)
	assert.False(t, patternErr.Unreachable, "pattern-matched ERROR must be distinguishable from unreachable probe")
}

func TestOneFailingCheckDoesNotAbortBatch(t *testing.T) {
	engine := newTestEngine(t)

	panicky := ProbeFunc(func(ctx context.Context) (string, error) {
		panic("probe blew up")
	})

	require.NoError(t, engine.Register(&Definition{
		ID: "panics", Tier: TierFree, Probe: panicky,
	}))
	after := &countingProbe{output: "HEALTHY"}
	require.NoError(t, engine.Register(&Definition{
		ID: "runs-anyway", Tier: TierFree, Probe: after, SuccessPatterns: []string{"HEALTHY"},
	}))

	report := engine.RunTier(context.Background(), TierFree)
	require.Len(t, report.Results, 2)

	assert.Equal(t, StatusError, report.Results[0].Status)
	assert.True(t, report.Results[0].Unreachable)
	assert.Equal(t, 1, after.calls, "remaining checks must still execute")
	assert.Equal(t, StatusHealthy, report.Results[1].Status)
}

func TestDeepCheckBudgetGate(t *testing.T) {
	tracker := newTestTracker(t, 0.30)
	engine, err := NewEngine(tracker, nil, nil)
	require.NoError(t, err)

	probe := &countingProbe{output: "HEALTHY"}
	require.NoError(t, engine.Register(&Definition{
		ID:              "deep",
		Tier:            TierDeep,
		Probe:           probe,
		SuccessPatterns: []string{"HEALTHY"},
		CostEstimate:    0.25,
	}))

	// First run fits the budget
	report := engine.RunTier(context.Background(), TierDeep)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusHealthy, report.Results[0].Status)
	assert.Equal(t, 1, probe.calls)

	// Second run would exceed it: skipped, reported, probe untouched
	report = engine.RunTier(context.Background(), TierDeep)
	require.Len(t, report.Results, 1, "a budget-skipped check is reported, not omitted")
	assert.Equal(t, StatusUnknown, report.Results[0].Status)
	assert.Equal(t, "budget exhausted", report.Results[0].Message)
	assert.Equal(t, 1, probe.calls, "a budget-skipped probe must not be invoked")
}

func TestEscalations(t *testing.T) {
	engine := newTestEngine(t)

	require.NoError(t, engine.Register(&Definition{
		ID:              "failing-with-target",
		Tier:            TierFree,
		Probe:           &countingProbe{output: "DOWN"},
		FailurePatterns: []string{"DOWN"},
		EscalateTo:      "restart-workflow",
	}))
	require.NoError(t, engine.Register(&Definition{
		ID:              "failing-no-target",
		Tier:            TierFree,
		Probe:           &countingProbe{output: "DOWN"},
		FailurePatterns: []string{"DOWN"},
	}))
	require.NoError(t, engine.Register(&Definition{
		ID:              "healthy-with-target",
		Tier:            TierFree,
		Probe:           &countingProbe{output: "UP"},
		SuccessPatterns: []string{"UP"},
		EscalateTo:      "restart-workflow",
	}))

	report := engine.RunTier(context.Background(), TierFree)
	require.Len(t, report.Escalations, 1)
	assert.Equal(t, "failing-with-target", report.Escalations[0].CheckID)
	assert.Equal(t, "restart-workflow", report.Escalations[0].WorkflowID)
}

func TestWorstStatus(t *testing.T) {
	assert.Equal(t, StatusHealthy, WorstStatus(nil))

	results := []*Result{
		{Status: StatusHealthy},
		{Status: StatusUnknown},
		{Status: StatusDegraded},
	}
	assert.Equal(t, StatusDegraded, WorstStatus(results))

	results = append(results, &Result{Status: StatusError})
	assert.Equal(t, StatusError, WorstStatus(results))
}

func TestRegisterValidation(t *testing.T) {
	engine := newTestEngine(t)

	assert.Error(t, engine.Register(nil))
	assert.Error(t, engine.Register(&Definition{Probe: &countingProbe{}}))
	assert.Error(t, engine.Register(&Definition{ID: "no-probe"}))

	def := &Definition{ID: "dup", Probe: &countingProbe{}}
	require.NoError(t, engine.Register(def))
	assert.Error(t, engine.Register(def), "duplicate IDs are rejected")
}
