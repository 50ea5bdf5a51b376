package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatElapsed renders d in milliseconds below one second, seconds below
// one minute and minutes otherwise, rounded to two decimals.
func FormatElapsed(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	switch {
	case ms < 1000:
		return formatRounded(ms) + "ms"
	case ms < 60000:
		return formatRounded(ms/1000) + "s"
	default:
		return formatRounded(ms/60000) + "min"
	}
}

func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// Summary renders the one-line result of a run.
func Summary(stats RunStatistics) string {
	msg := fmt.Sprintf("Processed %d row(s) in %s.", stats.Imported, FormatElapsed(stats.Elapsed))
	if stats.Skipped > 0 {
		msg += fmt.Sprintf(" Skipped %d invalid row(s).", stats.Skipped)
	}
	if stats.DryRun {
		msg = "Dry run: " + msg
	}
	return msg
}

// FailureReport renders the summary of an aborted run followed by the last
// attempted line and the error.
func FailureReport(stats RunStatistics, err error) string {
	var b strings.Builder
	b.WriteString(Summary(stats))
	b.WriteString("\n")
	if stats.Line > 0 {
		fmt.Fprintf(&b, "Last attempted line: %d.\n", stats.Line)
	}
	if err != nil {
		b.WriteString(FormatUserError(err))
		b.WriteString("\n")
	}
	return b.String()
}
