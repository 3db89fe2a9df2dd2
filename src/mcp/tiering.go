package mcp

import (
	"strings"

	"azdo-monitor/src/provider"
	"azdo-monitor/src/sanitize"
	"azdo-monitor/src/timeline"
)

// Issue limits per tier. Failed records keep every issue up to the cap; records
// that only warn keep a few.
const (
	FailedIssueLimit  = 20
	WarningIssueLimit = 3
)

// Default record limits per tier.
const (
	DefaultFailedLimit = 15
	DefaultWarnLimit   = 5
	DefaultOtherLimit  = 30
)

// classifyRecord determines which tier a record belongs to: 1 failed,
// 2 finished with warnings, 3 nothing to report.
func classifyRecord(rec provider.BuildRecord) int {
	switch {
	case rec.Result == "failed" || rec.Result == "abandoned" || rec.ErrorCount > 0:
		return 1
	case rec.Result == "succeededWithIssues" || rec.WarningCount > 0 || len(rec.Issues) > 0:
		return 2
	default:
		return 3
	}
}

// convertIssues sanitizes up to limit issues, errors first.
func convertIssues(issues []provider.Issue, limit int) []Issue {
	ordered := make([]provider.Issue, 0, len(issues))
	for _, is := range issues {
		if strings.EqualFold(is.Type, "error") {
			ordered = append(ordered, is)
		}
	}
	for _, is := range issues {
		if !strings.EqualFold(is.Type, "error") {
			ordered = append(ordered, is)
		}
	}
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]Issue, 0, len(ordered))
	for _, is := range ordered {
		out = append(out, Issue{
			Type:    is.Type,
			Message: CompressLine(sanitize.Clean(is.Message)),
			Line:    is.SourceLine,
		})
	}
	return out
}

func convertRecord(tree *timeline.Tree, rec provider.BuildRecord, issueLimit int) RecordFinding {
	f := RecordFinding{
		ID:       rec.ID,
		Name:     rec.Name,
		Kind:     string(rec.Kind),
		State:    rec.State,
		Result:   rec.Result,
		Elapsed:  timeline.ElapsedText(rec),
		Errors:   rec.ErrorCount,
		Warnings: rec.WarningCount,
		HasLog:   timeline.HasLog(rec),
		Issues:   convertIssues(rec.Issues, issueLimit),
	}
	if rec.Kind == provider.KindTask {
		if parent, ok := tree.Parent(rec.ID); ok {
			f.Job = parent.Name
		}
	}
	return f
}

// TierRecords groups the displayable records of a tree into tiers.
// limit caps the failed tier (default when <= 0); the other tiers scale from it.
// The Build field is left for the caller to fill.
func TierRecords(tree *timeline.Tree, limit int) TimelineManifest {
	failedLimit, warnLimit, otherLimit := DefaultFailedLimit, DefaultWarnLimit, DefaultOtherLimit
	if limit > 0 && limit != DefaultFailedLimit {
		failedLimit = limit
		warnLimit = max(1, limit/3)
		otherLimit = max(1, limit*2)
	}

	m := TimelineManifest{
		Failed:   []RecordFinding{},
		Warnings: []RecordFinding{},
		Other:    []RecordSummary{},
	}
	for _, rec := range tree.Displayable() {
		switch classifyRecord(rec) {
		case 1:
			if len(m.Failed) < failedLimit {
				m.Failed = append(m.Failed, convertRecord(tree, rec, FailedIssueLimit))
				continue
			}
		case 2:
			if len(m.Warnings) < warnLimit {
				m.Warnings = append(m.Warnings, convertRecord(tree, rec, WarningIssueLimit))
				continue
			}
		default:
			if len(m.Other) < otherLimit {
				m.Other = append(m.Other, RecordSummary{
					ID:      rec.ID,
					Name:    rec.Name,
					Result:  rec.Result,
					Elapsed: timeline.ElapsedText(rec),
				})
				continue
			}
		}
		m.Omitted++
	}
	return m
}

// buildStatus derives an overall status from the displayable records.
func buildStatus(tree *timeline.Tree) string {
	records := tree.Displayable()
	if len(records) == 0 {
		return "unknown"
	}
	status := "succeeded"
	for _, rec := range records {
		if rec.State != "completed" {
			return "inProgress"
		}
		switch classifyRecord(rec) {
		case 1:
			status = "failed"
		case 2:
			if status == "succeeded" {
				status = "succeededWithIssues"
			}
		}
	}
	return status
}
