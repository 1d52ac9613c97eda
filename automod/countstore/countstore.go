// Package countstore provides periodized event counters used by detectors
// and by action quota enforcement.
//
// Counter values are bucketed per time period (minute, hour, day, total);
// increments update every period bucket at once, so a single write serves
// both short-window burst detection and daily quota checks. "Distinct"
// counters count unique values per bucket instead of raw increments.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal  = "total"
	PeriodDay    = "day"
	PeriodHour   = "hour"
	PeriodMinute = "minute"
)

var allPeriods = []string{PeriodTotal, PeriodDay, PeriodHour, PeriodMinute}

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	IncrementPeriod(ctx context.Context, name, val, period string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

func periodBucket(name, val, period string) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := time.Now().UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := time.Now().UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodMinute:
		t := time.Now().UTC().Format(time.RFC3339)[0:16]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}
