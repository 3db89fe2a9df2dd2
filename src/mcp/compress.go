package mcp

import (
	"fmt"
	"regexp"
	"strings"
)

// hashPattern matches hex strings of 12+ characters (commit SHAs, container IDs)
var hashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

// maskHashes replaces long hex strings with <HASH>.
func maskHashes(line string) string {
	return hashPattern.ReplaceAllString(line, "<HASH>")
}

// longPathPattern matches absolute paths with 3+ directories, Unix or agent
// Windows style, and captures the file name with an optional line number.
var longPathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?[/\\](?:[^/\\\s]+[/\\]){3,}([^/\\\s:]+(?::\d+)?)`)

// compressPath shortens long file paths to .../filename.
func compressPath(line string) string {
	return longPathPattern.ReplaceAllString(line, ".../$1")
}

// minPrefixLength is the minimum prefix length worth removing.
const minPrefixLength = 20

// findCommonPrefix finds the longest common prefix across lines.
// Returns empty string if prefix is too short or there are fewer than two lines.
func findCommonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for len(prefix) > 0 && !strings.HasPrefix(line, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if len(prefix) == 0 {
			break
		}
	}

	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// removeCommonPrefix replaces common prefix with "... " across lines.
func removeCommonPrefix(lines []string) []string {
	prefix := findCommonPrefix(lines)
	if prefix == "" {
		return lines
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = "... " + line[len(prefix):]
	}
	return result
}

// whitespacePattern matches multiple consecutive whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses multiple spaces/tabs and trims.
func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// CompressLine applies the single-line reductions.
func CompressLine(line string) string {
	return normalizeWhitespace(compressPath(maskHashes(line)))
}

// CompressLogLines compresses each line, drops blank ones and folds runs of
// identical lines into one with a repeat count.
func CompressLogLines(lines []string) []string {
	var out []string
	var last string
	repeats := 0
	flush := func() {
		if repeats > 0 {
			out = append(out, fmt.Sprintf("(previous line repeated %d times)", repeats))
			repeats = 0
		}
	}

	for _, line := range lines {
		line = CompressLine(line)
		if line == "" {
			continue
		}
		if len(out) > 0 && line == last {
			repeats++
			continue
		}
		flush()
		out = append(out, line)
		last = line
	}
	flush()
	return removeCommonPrefix(out)
}
