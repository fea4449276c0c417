package repair

import (
	"path/filepath"
	"strings"
)

// ForbiddenCategory names a class of actions no repair workflow may
// perform, no matter how it is configured.
type ForbiddenCategory struct {
	// Name identifies the category in rejection messages
	Name string
	// Patterns are case-insensitive substrings matched against the
	// step's command text
	Patterns []string
}

// forbiddenCategories is the static deny-list. A workflow containing
// any matching step is rejected before a single step runs.
var forbiddenCategories = []ForbiddenCategory{
	{
		Name:     "destructive-git",
		Patterns: []string{"git reset --hard", "git push --force", "git push -f", "git clean -fd"},
	},
	{
		Name:     "dependency-teardown",
		Patterns: []string{"rm -rf node_modules", "npm install", "npm ci"},
	},
	{
		Name:     "source-deletion",
		Patterns: []string{"delete source files", "rm -rf src", "rm -rf internal", "rm -rf cmd"},
	},
	{
		Name:     "filesystem-destruction",
		Patterns: []string{"rm -rf /", "mkfs", "dd if="},
	},
	{
		Name:     "host-control",
		Patterns: []string{"shutdown", "reboot", "halt -f"},
	},
}

// safeToTerminateProcesses is the allow-list of process categories a
// repair step may kill. Anything else is never attempted.
var safeToTerminateProcesses = []string{
	"node",
	"npm",
	"next-server",
	"control-station",
}

// ScreenCommand checks a step's command text against the deny-list.
// Returns the matching category name when the command is forbidden.
func ScreenCommand(command string) (category string, forbidden bool) {
	lowered := strings.ToLower(command)
	for _, cat := range forbiddenCategories {
		for _, pat := range cat.Patterns {
			if strings.Contains(lowered, strings.ToLower(pat)) {
				return cat.Name, true
			}
		}
	}
	return "", false
}

// IsSafeToTerminate reports whether a process name is on the
// allow-list. Matching is by base name, case-insensitive, so
// "/usr/bin/node" and "NODE" both match "node".
func IsSafeToTerminate(process string) bool {
	name := strings.ToLower(filepath.Base(strings.TrimSpace(process)))
	if name == "" || name == "." {
		return false
	}
	for _, safe := range safeToTerminateProcesses {
		if name == safe {
			return true
		}
	}
	return false
}
