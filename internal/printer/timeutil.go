package printer

import (
	"fmt"
	"time"
)

// TimeAgo returns a human-readable time relative to now in UTC.
// Examples: "5 seconds ago (UTC)", "3 hours ago (UTC)", "in 2 minutes (UTC)".
func TimeAgo(t time.Time) string {
	return Relative(t, time.Now().UTC())
}

// Relative returns t relative to now in a human-readable way. Transaction
// expiries and task run times are usually in the future.
func Relative(t, now time.Time) string {
	diff := now.UTC().Sub(t.UTC())
	if diff < 0 {
		return "in " + humanDuration(-diff) + " (UTC)"
	}
	return humanDuration(diff) + " ago (UTC)"
}

func humanDuration(d time.Duration) string {
	var (
		n    int
		unit string
	)
	switch {
	case d < time.Minute:
		n, unit = int(d.Seconds()), "second"
	case d < time.Hour:
		n, unit = int(d.Minutes()), "minute"
	case d < 24*time.Hour:
		n, unit = int(d.Hours()), "hour"
	default:
		n, unit = int(d.Hours()/24), "day"
	}

	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// formatOptionalTimestamp returns "-" for unset timestamps.
func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return FormatTimestamp(*t)
}
