package utils

import (
	"math"
	"time"
)

// epochMillisThreshold separates second- from millisecond-precision epoch values.
// Anything below it (before Sep 2001 in ms) is read as whole seconds.
const epochMillisThreshold = 1e12

// NormalizeEpochMillis converts an epoch value of unknown unit to milliseconds.
func NormalizeEpochMillis(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if math.Abs(v) < epochMillisThreshold {
		return int64(math.Round(v * 1000))
	}
	return int64(math.Round(v))
}

// EpochToTime returns the UTC instant for an epoch value of unknown unit.
// An unset (0) epoch maps to the zero time so it reports as absent.
func EpochToTime(v float64) time.Time {
	ms := NormalizeEpochMillis(v)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// FormatISOMillis renders t like JavaScript's Date.toISOString: 2023-11-14T22:13:20.000Z.
func FormatISOMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
