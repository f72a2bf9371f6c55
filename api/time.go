package api

import "time"

// TimeLayout is RFC 3339 with the zone always written as a numeric offset.
const TimeLayout = "2006-01-02T15:04:05-07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
