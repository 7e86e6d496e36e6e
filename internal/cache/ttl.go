package cache

import (
	"fmt"
	"time"
)

// TTL defaults. Data for a season still in progress can change after every
// game, so it expires quickly; a concluded season is effectively immutable.
const (
	// DefaultTTL applies to namespaces with no season context (7 days).
	DefaultTTL = 7 * 24 * time.Hour

	// CurrentSeasonTTL applies to in-progress season data (24 hours).
	CurrentSeasonTTL = 24 * time.Hour

	// CompletedSeasonTTL applies to finalized season data (30 days).
	CompletedSeasonTTL = 30 * 24 * time.Hour

	// DefaultMaxSizeMB is the default eviction ceiling in megabytes.
	DefaultMaxSizeMB = 100

	hoursPerDay    = 24
	minutesPerHour = 60
)

// SeasonContext tells the TTL policy whether a record's season can still
// change. The boundary itself (is "2023-24" over?) is computed by callers;
// the cache treats it as opaque input.
type SeasonContext int

const (
	// ContextNone means the data has no season dimension.
	ContextNone SeasonContext = iota

	// ContextCurrent means the season is still in progress.
	ContextCurrent

	// ContextCompleted means the season has concluded.
	ContextCompleted
)

// String returns the context name for logging.
func (c SeasonContext) String() string {
	switch c {
	case ContextCurrent:
		return "current"
	case ContextCompleted:
		return "completed"
	default:
		return "none"
	}
}

// TTLPolicy maps (namespace, season context) to a freshness duration.
// It is a pure value; zero fields fall back to the package defaults.
type TTLPolicy struct {
	Default   time.Duration
	Current   time.Duration
	Completed time.Duration
}

// DefaultTTLPolicy returns the policy with the stock durations.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Default:   DefaultTTL,
		Current:   CurrentSeasonTTL,
		Completed: CompletedSeasonTTL,
	}
}

// For returns the TTL for a record in the given namespace and season
// context. The namespace is accepted so callers can pass what they know;
// today all namespaces share the same three rules.
func (p TTLPolicy) For(_ string, sctx SeasonContext) time.Duration {
	switch sctx {
	case ContextCurrent:
		if p.Current > 0 {
			return p.Current
		}
		return CurrentSeasonTTL
	case ContextCompleted:
		if p.Completed > 0 {
			return p.Completed
		}
		return CompletedSeasonTTL
	default:
		if p.Default > 0 {
			return p.Default
		}
		return DefaultTTL
	}
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "30s", "5m", "2h30m", "3d".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
