package logic

import (
	"fmt"
	"time"
)

// DurationSecs is the whole seconds between start and end. A nil end means
// still running and measures to now; a nil start is zero.
func DurationSecs(start, end *time.Time, now time.Time) int {
	if start == nil {
		return 0
	}
	stop := now
	if end != nil {
		stop = *end
	}
	secs := int(stop.Sub(*start) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// FormatDuration renders the elapsed time since start as m:ss.
func FormatDuration(start *time.Time, now time.Time) string {
	if start == nil {
		return "0:00"
	}
	secs := DurationSecs(start, nil, now)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatSecs renders seconds as "Xm Ys".
func FormatSecs(secs int) string {
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

// CookTime is the time an order spent between entering the kitchen and
// becoming ready, or so far if it is still cooking.
func (o *SavedOrder) CookTime(now time.Time) int {
	return DurationSecs(o.CookingStartedAt, o.ReadyAt, now)
}

// TotalTime is the time from creation to completion, or so far.
func (o *SavedOrder) TotalTime(now time.Time) int {
	created := o.CreatedAt
	return DurationSecs(&created, o.CompletedAt, now)
}
