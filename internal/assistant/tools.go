package assistant

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// ErrUnknownTool indicates a tool name outside the supported set.
var ErrUnknownTool = errors.New("unknown assistant tool")

var toolCommands = map[string][][]string{
	"claude":   {{"claude"}},
	"copilot":  {{"copilot"}, {"gh", "copilot", "suggest"}},
	"codex":    {{"codex"}, {"openai", "codex"}},
	"opencode": {{"opencode"}},
}

// KnownTools lists the supported tool names in sorted order.
func KnownTools() []string {
	names := make([]string, 0, len(toolCommands))
	for name := range toolCommands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Candidate is one invocable command for a tool.
type Candidate struct {
	Tool    string
	Command []string
	Path    string
}

// String renders the command line.
func (c Candidate) String() string {
	return strings.Join(c.Command, " ")
}

// Candidates resolves every installed command variant for the tools in order.
// A non-empty force replaces the order with that single tool. Unknown names
// in order are skipped; an unknown forced tool is an error.
func Candidates(order []string, force string) ([]Candidate, error) {
	if force != "" {
		force = strings.ToLower(strings.TrimSpace(force))
		if _, ok := toolCommands[force]; !ok {
			return nil, fmt.Errorf("%w: %s (expected one of %s)", ErrUnknownTool, force, strings.Join(KnownTools(), ", "))
		}
		order = []string{force}
	}
	var out []Candidate
	for _, tool := range order {
		variants, ok := toolCommands[tool]
		if !ok {
			continue
		}
		for _, variant := range variants {
			path, err := exec.LookPath(variant[0])
			if err != nil {
				continue
			}
			out = append(out, Candidate{Tool: tool, Command: variant, Path: path})
		}
	}
	return out, nil
}
