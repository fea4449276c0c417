package repair

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAction fails a fixed number of times before succeeding
type scriptedAction struct {
	failuresLeft int
	calls        int
}

func (a *scriptedAction) Run(ctx context.Context) (bool, string) {
	a.calls++
	if a.failuresLeft > 0 {
		a.failuresLeft--
		return false, "scripted failure"
	}
	return true, "done"
}

func succeed() Action {
	return ActionFunc(func(ctx context.Context) (bool, string) { return true, "ok" })
}

func fail() Action {
	return ActionFunc(func(ctx context.Context) (bool, string) { return false, "boom" })
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig(), NewLimiter(""), nil, nil)
	require.NoError(t, err)
	return engine
}

func stepOutcomes(record *ExecutionRecord) []Outcome {
	out := make([]Outcome, len(record.Steps))
	for i, s := range record.Steps {
		out[i] = s.Outcome
	}
	return out
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	engine := newTestEngine(t)

	record := engine.Execute(context.Background(), "no-such-workflow")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Empty(t, record.Steps)
	assert.Contains(t, record.Summary, "unknown workflow")
}

func TestForbiddenStepRejectsWholeWorkflow(t *testing.T) {
	engine := newTestEngine(t)

	calls := 0
	counting := ActionFunc(func(ctx context.Context) (bool, string) {
		calls++
		return true, "ok"
	})

	require.NoError(t, engine.Register(&Workflow{
		ID: "bad",
		Steps: []Step{
			{Name: "harmless", Action: counting, Command: "sleep 1", Required: true},
			{Name: "nuke", Action: counting, Command: "git reset --hard HEAD", Required: true},
		},
	}))

	record := engine.Execute(context.Background(), "bad")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Empty(t, record.Steps, "a rejected workflow records zero step outcomes")
	assert.Contains(t, record.Summary, "forbidden")
	assert.Equal(t, 0, calls, "no step may run in a rejected workflow")
}

func TestRepairRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairsPerHour = 2
	engine, err := NewEngine(cfg, NewLimiter(""), nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Register(&Workflow{
		ID:    "wf",
		Steps: []Step{{Name: "ok", Action: succeed(), Required: true}},
	}))

	for i := 0; i < 2; i++ {
		record := engine.Execute(context.Background(), "wf")
		assert.Equal(t, ResultSuccess, record.Overall)
	}

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, "rate limited", record.Summary)
	assert.Empty(t, record.Steps)
}

func TestRestartRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairsPerHour = 10
	cfg.RestartsPerDay = 1
	engine, err := NewEngine(cfg, NewLimiter(""), nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Register(&Workflow{
		ID:      "restart",
		Restart: true,
		Steps:   []Step{{Name: "ok", Action: succeed(), Required: true}},
	}))
	require.NoError(t, engine.Register(&Workflow{
		ID:    "plain",
		Steps: []Step{{Name: "ok", Action: succeed(), Required: true}},
	}))

	assert.Equal(t, ResultSuccess, engine.Execute(context.Background(), "restart").Overall)

	record := engine.Execute(context.Background(), "restart")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, "rate limited", record.Summary)

	// Non-restart workflows are unaffected by the restart limit
	assert.Equal(t, ResultSuccess, engine.Execute(context.Background(), "plain").Overall)
}

func TestRestartLimitRejectionKeepsHourlyBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepairsPerHour = 3
	cfg.RestartsPerDay = 1
	engine, err := NewEngine(cfg, NewLimiter(""), nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Register(&Workflow{
		ID:      "restart",
		Restart: true,
		Steps:   []Step{{Name: "ok", Action: succeed(), Required: true}},
	}))

	assert.Equal(t, ResultSuccess, engine.Execute(context.Background(), "restart").Overall)
	assert.Equal(t, 2, engine.RepairsRemaining())
	assert.Equal(t, 0, engine.RestartsRemaining())

	// A restart-limit rejection must not consume an hourly repair slot
	record := engine.Execute(context.Background(), "restart")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, "rate limited", record.Summary)
	assert.Equal(t, 2, engine.RepairsRemaining())
}

func TestStopPolicySkipsRemainingSteps(t *testing.T) {
	engine := newTestEngine(t)

	bCalls := 0
	stepB := ActionFunc(func(ctx context.Context) (bool, string) {
		bCalls++
		return true, "ok"
	})

	require.NoError(t, engine.Register(&Workflow{
		ID: "wf",
		Steps: []Step{
			{Name: "stepA", Action: fail(), Required: true, Policy: PolicyStop},
			{Name: "stepB", Action: stepB, Required: true},
		},
	}))

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeSkipped}, stepOutcomes(record))
	assert.Equal(t, 0, bCalls, "stepB must never run after a STOP")
}

func TestContinuePolicyRunsNextStep(t *testing.T) {
	tests := []struct {
		name        string
		stepB       Action
		wantOverall OverallResult
		wantB       Outcome
	}{
		{
			name:        "required CONTINUE failure then success is PARTIAL",
			stepB:       succeed(),
			wantOverall: ResultPartial,
			wantB:       OutcomeSucceeded,
		},
		{
			name:        "required CONTINUE failure then failure stays PARTIAL",
			stepB:       ActionFunc(func(ctx context.Context) (bool, string) { return false, "also failed" }),
			wantOverall: ResultPartial,
			wantB:       OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t)
			require.NoError(t, engine.Register(&Workflow{
				ID: "wf",
				Steps: []Step{
					{Name: "stepA", Action: fail(), Required: true, Policy: PolicyContinue},
					{Name: "stepB", Action: tt.stepB, Required: false, Policy: PolicyContinue},
				},
			}))

			record := engine.Execute(context.Background(), "wf")
			assert.Equal(t, tt.wantOverall, record.Overall)
			require.Len(t, record.Steps, 2)
			assert.Equal(t, OutcomeFailed, record.Steps[0].Outcome)
			assert.Equal(t, tt.wantB, record.Steps[1].Outcome, "stepB runs regardless of stepA's failure")
		})
	}
}

func TestOptionalFailureDoesNotForceFailed(t *testing.T) {
	engine := newTestEngine(t)

	require.NoError(t, engine.Register(&Workflow{
		ID: "wf",
		Steps: []Step{
			{Name: "optional", Action: fail(), Required: false, Policy: PolicyContinue},
			{Name: "main", Action: succeed(), Required: true},
		},
	}))

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultSuccess, record.Overall)
	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeSucceeded}, stepOutcomes(record))
}

func TestRetryPolicy(t *testing.T) {
	t.Run("succeeds within attempts", func(t *testing.T) {
		engine := newTestEngine(t)
		action := &scriptedAction{failuresLeft: 2}

		require.NoError(t, engine.Register(&Workflow{
			ID: "wf",
			Steps: []Step{
				{Name: "flaky", Action: action, Required: true, Policy: PolicyRetry, MaxAttempts: 3},
			},
		}))

		record := engine.Execute(context.Background(), "wf")
		assert.Equal(t, ResultSuccess, record.Overall)
		assert.Equal(t, 3, record.Steps[0].Attempts)
	})

	t.Run("exhausted falls back to STOP by default", func(t *testing.T) {
		engine := newTestEngine(t)
		action := &scriptedAction{failuresLeft: 10}

		require.NoError(t, engine.Register(&Workflow{
			ID: "wf",
			Steps: []Step{
				{Name: "flaky", Action: action, Required: true, Policy: PolicyRetry, MaxAttempts: 3},
				{Name: "after", Action: succeed(), Required: true},
			},
		}))

		record := engine.Execute(context.Background(), "wf")
		assert.Equal(t, ResultFailed, record.Overall)
		assert.Equal(t, []Outcome{OutcomeFailed, OutcomeSkipped}, stepOutcomes(record))
		assert.Equal(t, 3, action.calls)
	})

	t.Run("exhausted falls back to CONTINUE when configured", func(t *testing.T) {
		engine := newTestEngine(t)
		action := &scriptedAction{failuresLeft: 10}

		require.NoError(t, engine.Register(&Workflow{
			ID:               "wf",
			OnRetryExhausted: PolicyContinue,
			Steps: []Step{
				{Name: "flaky", Action: action, Required: true, Policy: PolicyRetry, MaxAttempts: 2},
				{Name: "after", Action: succeed(), Required: true},
			},
		}))

		record := engine.Execute(context.Background(), "wf")
		assert.Equal(t, ResultPartial, record.Overall)
		assert.Equal(t, []Outcome{OutcomeFailed, OutcomeSucceeded}, stepOutcomes(record))
	})
}

func TestStepTimeout(t *testing.T) {
	engine := newTestEngine(t)

	hang := ActionFunc(func(ctx context.Context) (bool, string) {
		<-ctx.Done()
		// Keep hanging a moment past cancellation to exercise the
		// disown path
		time.Sleep(10 * time.Millisecond)
		return true, "too late"
	})

	require.NoError(t, engine.Register(&Workflow{
		ID: "wf",
		Steps: []Step{
			{Name: "hangs", Action: hang, Required: true, Timeout: 20 * time.Millisecond},
		},
	}))

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, OutcomeFailed, record.Steps[0].Outcome)
	assert.Contains(t, record.Steps[0].Detail, "timed out")
}

func TestUnsafeProcessTargetBlockedByEngine(t *testing.T) {
	engine := newTestEngine(t)

	invoked := false
	killer := ActionFunc(func(ctx context.Context) (bool, string) {
		invoked = true
		return true, "killed"
	})

	require.NoError(t, engine.Register(&Workflow{
		ID: "wf",
		Steps: []Step{
			{Name: "kill-db", Action: killer, Command: "pkill postgres", TargetProcess: "postgres", Required: true},
		},
	}))

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultFailed, record.Overall)
	assert.Equal(t, OutcomeFailed, record.Steps[0].Outcome)
	assert.Contains(t, record.Steps[0].Detail, "safe-to-terminate")
	assert.False(t, invoked, "the engine must block the action before it runs")
}

func TestSafeProcessTargetAllowed(t *testing.T) {
	engine := newTestEngine(t)

	require.NoError(t, engine.Register(&Workflow{
		ID: "wf",
		Steps: []Step{
			{Name: "kill-node", Action: succeed(), Command: "fuser -k 3000/tcp", TargetProcess: "node", Required: true},
		},
	}))

	record := engine.Execute(context.Background(), "wf")
	assert.Equal(t, ResultSuccess, record.Overall)
}

func TestDefaultWorkflowsRegister(t *testing.T) {
	engine := newTestEngine(t)

	factory := func(command string) Action { return succeed() }
	require.NoError(t, RegisterFromConfig(engine, DefaultWorkflows(), factory))

	wfs := engine.Workflows()
	require.NotEmpty(t, wfs)
	assert.Equal(t, "dev-server-restart", wfs[0].ID)
	assert.True(t, wfs[0].Restart)
}
