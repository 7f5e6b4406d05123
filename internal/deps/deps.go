// Package deps inspects the external binaries the collection runners
// shell out to, so failures surface before a run starts instead of
// halfway through a download batch.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary a runner relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForRunner returns the external binaries a named runner needs.
// Unknown names yield an empty slice.
func ForRunner(runner string) []Requirement {
	switch strings.ToLower(strings.TrimSpace(runner)) {
	case "latex":
		return []Requirement{
			{Name: "pdflatex", Command: "pdflatex", Description: "Renders extracted environments to PDF"},
			{Name: "pdftoppm", Command: "pdftoppm", Description: "Rasterizes rendered PDF pages"},
		}
	case "music":
		return []Requirement{
			{Name: "pdftoppm", Command: "pdftoppm", Description: "Rasterizes sheet music PDF pages"},
		}
	case "webpage":
		return []Requirement{
			{Name: "git", Command: "git", Description: "Clones candidate repositories"},
			{Name: "chromium", Command: "chromium", Description: "Captures page screenshots"},
			{Name: "jekyll", Command: "jekyll", Description: "Builds Jekyll sites before serving", Optional: true},
		}
	default:
		return nil
	}
}

// All returns the requirements for every runner, deduplicated by command.
func All() []Requirement {
	var out []Requirement
	seen := make(map[string]struct{})
	for _, runner := range []string{"latex", "webpage", "music"} {
		for _, req := range ForRunner(runner) {
			if _, ok := seen[req.Command]; ok {
				continue
			}
			seen[req.Command] = struct{}{}
			out = append(out, req)
		}
	}
	return out
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := lookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required binaries that are
// unavailable in the given statuses.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

// lookPath resolves a command, trying well known fallbacks for browsers
// that ship under distribution specific names.
func lookPath(cmd string) (string, error) {
	candidates := []string{cmd}
	if cmd == "chromium" {
		candidates = append(candidates, "chromium-browser", "google-chrome")
	}
	var lastErr error
	for _, candidate := range candidates {
		resolved, err := exec.LookPath(candidate)
		if err == nil {
			return resolved, nil
		}
		lastErr = err
	}
	return "", lastErr
}
