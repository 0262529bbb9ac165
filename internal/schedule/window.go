package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day, minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime accepts "HH:MM" (and "HH:MM:SS", seconds ignored).
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	if h == 24 {
		// 24:00 is the same instant as the next day's 00:00
		h, m = 0, 0
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// Window is an allowed execution window. A Stop at or before Start spans
// midnight, so 21:00-00:00 ends at the following midnight.
type Window struct {
	Days  [7]bool // indexed by time.Weekday
	Start ClockTime
	Stop  ClockTime
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "MON": time.Monday, "TUE": time.Tuesday, "WED": time.Wednesday,
	"THU": time.Thursday, "FRI": time.Friday, "SAT": time.Saturday,
}

// ParseDays reads a day list such as "MON,TUE,WED", "MON-FRI" or ISO
// numbers "1,2,3,4,5" (1 = Monday, 7 = Sunday).
func ParseDays(s string) ([7]bool, error) {
	var days [7]bool
	for _, item := range strings.Split(s, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if from, to, ok := strings.Cut(item, "-"); ok {
			a, err := parseDay(from)
			if err != nil {
				return days, err
			}
			b, err := parseDay(to)
			if err != nil {
				return days, err
			}
			for d := a; ; d = (d + 1) % 7 {
				days[d] = true
				if d == b {
					break
				}
			}
			continue
		}
		d, err := parseDay(item)
		if err != nil {
			return days, err
		}
		days[d] = true
	}
	return days, nil
}

func parseDay(s string) (time.Weekday, error) {
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	if len(s) > 3 {
		if d, ok := weekdayNames[s[:3]]; ok {
			return d, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return time.Weekday(n % 7), nil
}

// NewWindow builds a window from its textual configuration.
func NewWindow(days, start, stop string) (Window, error) {
	d, err := ParseDays(days)
	if err != nil {
		return Window{}, err
	}
	s, err := ParseClockTime(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClockTime(stop)
	if err != nil {
		return Window{}, err
	}
	return Window{Days: d, Start: s, Stop: e}, nil
}

func (w Window) spansMidnight() bool {
	return w.Stop.minutes() <= w.Start.minutes()
}

// bounds returns the window opening on the calendar day of day.
func (w Window) bounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	start := time.Date(y, m, d, w.Start.Hour, w.Start.Minute, 0, 0, loc)
	endDay := d
	if w.spansMidnight() {
		endDay++
	}
	end := time.Date(y, m, endDay, w.Stop.Hour, w.Stop.Minute, 0, 0, loc)
	return start, end
}

// Plan is the set of windows for one (country, message type) pair.
type Plan struct {
	Windows  []Window
	Holidays Holidays
}

// Holidays is a set of calendar days, keyed "2006-01-02".
type Holidays map[string]struct{}

// ParseHolidays reads a CSV of ISO dates.
func ParseHolidays(csv []string) (Holidays, error) {
	h := make(Holidays, len(csv))
	for _, item := range csv {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, item)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", item, err)
		}
		h[d.Format(time.DateOnly)] = struct{}{}
	}
	return h, nil
}

func (h Holidays) contains(day time.Time) bool {
	_, ok := h[day.Format(time.DateOnly)]
	return ok
}

func (p Plan) opensOn(w Window, day time.Time) bool {
	return w.Days[day.Weekday()] && !p.Holidays.contains(day)
}

// Contains reports whether t lies inside any window. A window that opened
// on the previous day and spans midnight is honoured too.
func (p Plan) Contains(t time.Time) bool {
	y, m, d := t.Date()
	for _, w := range p.Windows {
		for _, offset := range []int{0, -1} {
			day := time.Date(y, m, d+offset, 0, 0, 0, 0, t.Location())
			if !p.opensOn(w, day) {
				continue
			}
			start, end := w.bounds(day)
			if !t.Before(start) && t.Before(end) {
				return true
			}
		}
	}
	return false
}

// NextStart finds the earliest window start strictly after t within the
// next maxDays calendar days.
func (p Plan) NextStart(t time.Time, maxDays int) (time.Time, bool) {
	y, m, d := t.Date()
	for offset := 0; offset <= maxDays; offset++ {
		day := time.Date(y, m, d+offset, 0, 0, 0, 0, t.Location())
		var best time.Time
		for _, w := range p.Windows {
			if !p.opensOn(w, day) {
				continue
			}
			start, _ := w.bounds(day)
			if start.After(t) && (best.IsZero() || start.Before(best)) {
				best = start
			}
		}
		if !best.IsZero() {
			return best, true
		}
	}
	return time.Time{}, false
}
