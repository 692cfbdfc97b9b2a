package forecast

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/smukkama/openweather-panel/internal/owm"
)

// TodaySlots is the number of 3-hour entries shown for today
const TodaySlots = 4

// MaxDays is the largest supported forecast day count
const MaxDays = 5

// Today returns the next TodaySlots entries
func Today(entries []owm.ForecastEntry) []owm.ForecastEntry {
	n := TodaySlots
	if len(entries) < n {
		n = len(entries)
	}
	out := make([]owm.ForecastEntry, n)
	copy(out, entries[:n])
	return out
}

// Days groups entries into per-day buckets in a single pass. Entries dated
// today in tz are skipped; a new bucket opens whenever the calendar date
// changes, and grouping stops once limit buckets are filled.
func Days(entries []owm.ForecastEntry, now time.Time, tz *time.Location, limit int) [][]owm.ForecastEntry {
	if limit <= 0 {
		return nil
	}
	if tz == nil {
		tz = time.Local
	}

	today := dateOf(now, tz)
	var (
		buckets [][]owm.ForecastEntry
		current civilDate
	)

	for _, e := range entries {
		d := dateOf(e.Time(), tz)
		if d == today {
			continue
		}
		if len(buckets) == 0 {
			buckets = append(buckets, []owm.ForecastEntry{e})
			current = d
			continue
		}
		if d == current {
			last := len(buckets) - 1
			buckets[last] = append(buckets[last], e)
			continue
		}
		if len(buckets) == limit {
			break
		}
		buckets = append(buckets, []owm.ForecastEntry{e})
		current = d
	}
	return buckets
}

// SameFirstEntry reports whether both payloads start with an identical
// entry, compared by JSON encoding. It is used as a cheap change detector.
func SameFirstEntry(a, b *owm.ForecastResponse) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a.List) == 0 || len(b.List) == 0 {
		return len(a.List) == len(b.List)
	}
	ab, err := json.Marshal(a.List[0])
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b.List[0])
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// DaysUntil returns the number of calendar days from now to t in tz
func DaysUntil(t, now time.Time, tz *time.Location) int {
	if tz == nil {
		tz = time.Local
	}
	a := dateOf(now, tz)
	b := dateOf(t, tz)
	return int(b.midnight().Sub(a.midnight()).Hours()+12) / 24
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time, tz *time.Location) civilDate {
	y, m, d := t.In(tz).Date()
	return civilDate{y, m, d}
}

func (d civilDate) midnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}
