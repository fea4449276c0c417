// Package probe runs external shell commands on behalf of the health
// and repair engines: command probes for checks, command actions for
// repair steps, and process spawning for orchestrated agents.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/repair"
)

// CommandProbe runs a shell command and reports its combined output.
// A non-zero exit from a completed command is not a probe failure;
// the health engine classifies the output against its patterns. Only
// a command that could not run or did not finish in time is an error.
type CommandProbe struct {
	Command string
	// Dir is the working directory (empty = inherit)
	Dir string
}

// NewCommandProbe creates a probe for a shell command
func NewCommandProbe(command string) *CommandProbe {
	return &CommandProbe{Command: command}
}

// Run executes the command and returns its combined output
func (p *CommandProbe) Run(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	if p.Dir != "" {
		cmd.Dir = p.Dir
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return string(output), fmt.Errorf("command did not complete: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Completed with a non-zero exit. The exit code is not a
			// verdict; pattern classification decides what the output
			// means.
			return string(output), nil
		}
		return string(output), fmt.Errorf("command failed: %w", err)
	}

	return string(output), nil
}

// CheckProbeFactory adapts NewCommandProbe to the health engine's
// config loader
func CheckProbeFactory(command string) checks.Probe {
	return NewCommandProbe(command)
}

// CommandAction runs a shell command as one repair step. Success is
// exit code zero.
type CommandAction struct {
	Command string
	Dir     string
}

// Run executes the command; detail carries trimmed output or the error
func (a *CommandAction) Run(ctx context.Context) (bool, string) {
	cmd := exec.CommandContext(ctx, "sh", "-c", a.Command)
	if a.Dir != "" {
		cmd.Dir = a.Dir
	}

	output, err := cmd.CombinedOutput()
	detail := strings.TrimSpace(string(output))
	if err != nil {
		if detail == "" {
			detail = err.Error()
		} else {
			detail = fmt.Sprintf("%s: %v", detail, err)
		}
		return false, detail
	}

	return true, detail
}

// RepairActionFactory adapts CommandAction to the repair engine's
// workflow loader
func RepairActionFactory(command string) repair.Action {
	return &CommandAction{Command: command}
}
