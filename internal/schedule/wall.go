package schedule

import (
	"fmt"
	"strings"
	"time"
)

// WallLayout is how wall-clock values are rendered to the BSS.
const WallLayout = time.DateTime

// ToWall re-labels t so that its wall-clock fields in loc are kept and the
// zone is dropped. Use it for timestamp-without-time-zone columns.
func ToWall(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// FromWall interprets the wall-clock fields of t as a local time in loc.
func FromWall(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

var cnLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// ParseCNTime parses a CN timestamp (ISO-8601, usually with offset) and
// returns it in loc. Values without an offset are taken as local to loc.
func ParseCNTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range cnLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised CN timestamp %q", s)
}

// FormatWall renders the wall-clock fields of t.
func FormatWall(t time.Time) string {
	return t.Format(WallLayout)
}
