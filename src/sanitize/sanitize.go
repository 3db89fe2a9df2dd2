// Package sanitize cleans Azure Pipelines log text for plain-text consumers.
// It removes ANSI escape codes and the timestamp Azure prefixes to every line,
// producing text suitable for MCP tool responses and piped CLI output.
//
// The TUI keeps colours and does its own ANSI handling via charmbracelet/x/ansi.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// CSI sequences, e.g. \x1b[31m or \x1b[2K
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

	// Line prefix written by the agent: 2024-01-01T10:00:00.1234567Z
	timestampPattern = regexp.MustCompile(`(?m)^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z ?`)
)

// Logging command markers the agent writes into logs.
const (
	ErrorMarker   = "##[error]"
	WarningMarker = "##[warning]"
	SectionMarker = "##[section]"
)

// StripANSI removes ANSI escape codes.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// StripTimestamps removes the per-line agent timestamp.
func StripTimestamps(s string) string {
	return timestampPattern.ReplaceAllString(s, "")
}

// Clean strips ANSI codes and timestamps, normalizes line endings and trims
// trailing whitespace.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = StripANSI(s)
	s = StripTimestamps(s)
	return strings.TrimRight(s, " \t\n")
}

// ErrorLines returns the cleaned lines marked as errors, without the marker.
func ErrorLines(s string) []string {
	var out []string
	for _, line := range strings.Split(Clean(s), "\n") {
		if i := strings.Index(line, ErrorMarker); i >= 0 {
			out = append(out, strings.TrimSpace(line[i+len(ErrorMarker):]))
		}
	}
	return out
}
