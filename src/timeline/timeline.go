// Package timeline turns the flat record set of a build timeline into the
// job and task view shown by the build monitor.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"azdo-monitor/src/provider"
)

// IsDisplayable reports whether records of this kind are shown to the user.
func IsDisplayable(kind provider.RecordKind) bool {
	return kind == provider.KindJob || kind == provider.KindTask
}

// FilterDisplayable returns the Job and Task records in server order.
func FilterDisplayable(records []provider.BuildRecord) []provider.BuildRecord {
	out := make([]provider.BuildRecord, 0, len(records))
	for _, rec := range records {
		if IsDisplayable(rec.Kind) {
			out = append(out, rec)
		}
	}
	return out
}

// Elapsed returns the absolute time between start and finish.
// ok is false while either timestamp is missing.
func Elapsed(rec provider.BuildRecord) (d time.Duration, ok bool) {
	if rec.StartTime == nil || rec.FinishTime == nil {
		return 0, false
	}
	d = rec.FinishTime.Sub(*rec.StartTime)
	if d < 0 {
		d = -d
	}
	return d, true
}

// FormatElapsed renders d as days, hours, minutes and seconds, skipping zero
// units. 90s renders as "1 minutes 30 sec". Sub-second durations render empty.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	units := []struct {
		n    int64
		name string
	}{
		{total / 86400, "days"},
		{total % 86400 / 3600, "hours"},
		{total % 3600 / 60, "minutes"},
		{total % 60, "sec"},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", u.n, u.name))
		}
	}
	return strings.Join(parts, " ")
}

// ElapsedText is FormatElapsed of Elapsed, or "" while the record is unfinished.
func ElapsedText(rec provider.BuildRecord) string {
	d, ok := Elapsed(rec)
	if !ok {
		return ""
	}
	return FormatElapsed(d)
}

// ErrorSummary is the per-record error rollup.
type ErrorSummary struct {
	Count  int
	Issues []provider.Issue
}

// Summarize passes through the error count and issues of a record.
func Summarize(rec provider.BuildRecord) ErrorSummary {
	return ErrorSummary{Count: rec.ErrorCount, Issues: rec.Issues}
}

// Errors returns only the issues of type "error".
func (s ErrorSummary) Errors() []provider.Issue {
	var out []provider.Issue
	for _, is := range s.Issues {
		if strings.EqualFold(is.Type, "error") {
			out = append(out, is)
		}
	}
	return out
}

// HasLog reports whether a log can be fetched for the record.
// A missing log reference is a normal state, not an error.
func HasLog(rec provider.BuildRecord) bool {
	return rec.Log != nil
}
