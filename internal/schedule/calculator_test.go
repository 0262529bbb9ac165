package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cet = time.FixedZone("CET", 3600)

func at(day, hour, minute, sec int) time.Time {
	return time.Date(2025, time.October, day, hour, minute, sec, 0, cet)
}

func mustWindow(t *testing.T, days, start, stop string) Window {
	t.Helper()
	w, err := NewWindow(days, start, stop)
	require.NoError(t, err)
	return w
}

func spainPlan(t *testing.T) Plan {
	return Plan{Windows: []Window{
		mustWindow(t, "MON-FRI", "08:00", "14:00"),
		mustWindow(t, "MON-FRI", "15:00", "20:00"),
	}}
}

func newCalc(t *testing.T, now time.Time, plan Plan, opts ...func(*Config)) *Calculator {
	t.Helper()
	cfg := Config{Location: cet, Clock: NewFixedClock(now), Rand: func(int64) int64 { return 0 }}
	for _, o := range opts {
		o(&cfg)
	}
	c := NewCalculator(cfg)
	c.Register("ES", AnyMessageType, plan)
	return c
}

func TestNextExecutionInWindow(t *testing.T) {
	c := newCalc(t, at(20, 10, 0, 0), spainPlan(t))

	res, err := c.NextExecution(5*time.Minute, "status_check", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusInWindow, res.Status)
	assert.Equal(t, at(20, 10, 5, 0), res.At)
	assert.Equal(t, 5*time.Minute, res.Delay)
}

func TestNextExecutionMinimumHorizon(t *testing.T) {
	c := newCalc(t, at(20, 10, 0, 0), spainPlan(t))

	res, err := c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 1, 0), res.At)
	assert.Equal(t, MinHorizon, res.Delay)
}

func TestNextExecutionBetweenWindows(t *testing.T) {
	c := newCalc(t, at(20, 14, 30, 0), spainPlan(t))

	res, err := c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusNextWindow, res.Status)
	assert.Equal(t, at(20, 15, 0, 0), res.At)
}

func TestNextExecutionSkipsWeekend(t *testing.T) {
	// Friday evening, candidate lands after the afternoon window closes
	c := newCalc(t, at(17, 19, 59, 30), spainPlan(t))

	res, err := c.NextExecution(time.Minute, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusNextWindow, res.Status)
	assert.Equal(t, at(20, 8, 0, 0), res.At)
	assert.Equal(t, time.Monday, res.At.Weekday())
}

func TestNextExecutionSkipsHoliday(t *testing.T) {
	plan := spainPlan(t)
	var err error
	plan.Holidays, err = ParseHolidays([]string{"2025-10-20", " "})
	require.NoError(t, err)
	c := newCalc(t, at(17, 20, 30, 0), plan)

	res, err := c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, at(21, 8, 0, 0), res.At)
}

func TestNextExecutionMidnightWindow(t *testing.T) {
	plan := Plan{Windows: []Window{mustWindow(t, "MON-FRI", "21:00", "00:00")}}

	c := newCalc(t, at(20, 23, 58, 30), plan)
	res, err := c.NextExecution(0, "5", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusInWindow, res.Status)
	assert.Equal(t, at(20, 23, 59, 30), res.At)

	c = newCalc(t, at(20, 23, 59, 30), plan)
	res, err = c.NextExecution(0, "5", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusNextWindow, res.Status)
	assert.Equal(t, at(21, 21, 0, 0), res.At)
}

func TestPlanContainsOvernightWindow(t *testing.T) {
	plan := Plan{Windows: []Window{mustWindow(t, "MON", "22:00", "06:00")}}

	assert.True(t, plan.Contains(at(20, 23, 0, 0)))
	assert.True(t, plan.Contains(at(21, 3, 0, 0)), "opened on Monday")
	assert.False(t, plan.Contains(at(21, 6, 0, 0)), "stop is exclusive")
	assert.False(t, plan.Contains(at(21, 23, 0, 0)), "Tuesday does not open")
}

func TestNextExecutionJitter(t *testing.T) {
	withRand := func(v int64) func(*Config) {
		return func(c *Config) {
			c.Jitter = 5 * time.Minute
			c.Rand = func(n int64) int64 { return min(v, n-1) }
		}
	}

	c := newCalc(t, at(20, 10, 0, 0), spainPlan(t), withRand(int64(30*time.Second)))
	res, err := c.NextExecution(0, "submit", "ES", true)
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 1, 30), res.At)

	// jitter pushing past 14:00 is dropped
	c = newCalc(t, at(20, 13, 57, 0), spainPlan(t), withRand(int64(5*time.Minute)))
	res, err = c.NextExecution(0, "submit", "ES", true)
	require.NoError(t, err)
	assert.Equal(t, at(20, 13, 58, 0), res.At)

	// no jitter requested
	c = newCalc(t, at(20, 10, 0, 0), spainPlan(t), withRand(int64(30*time.Second)))
	res, err = c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 1, 0), res.At)
}

func TestNextExecutionIgnoreWindows(t *testing.T) {
	c := newCalc(t, at(18, 3, 0, 0), spainPlan(t), func(c *Config) { c.IgnoreWindows = true })

	res, err := c.NextExecution(0, "submit", "ES", true)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, res.Status)
	assert.Equal(t, at(18, 3, 0, 0), res.At)
	assert.True(t, c.InWorkingHours("ES", at(18, 3, 0, 0)))
}

func TestNextExecutionFallback(t *testing.T) {
	c := newCalc(t, at(20, 10, 0, 0), Plan{Windows: []Window{{Start: ClockTime{Hour: 8}, Stop: ClockTime{Hour: 9}}}})

	res, err := c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, at(20, 11, 0, 0), res.At)
}

func TestNextExecutionUnknownCountry(t *testing.T) {
	c := newCalc(t, at(20, 10, 0, 0), spainPlan(t))
	_, err := c.NextExecution(0, "1", "IT", false)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestMessageTypePlanOverridesDefault(t *testing.T) {
	c := newCalc(t, at(20, 9, 0, 0), spainPlan(t))
	c.Register("ES", "1", Plan{Windows: []Window{mustWindow(t, "MON-FRI", "10:00", "19:00")}})

	res, err := c.NextExecution(0, "1", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 0, 0), res.At)

	res, err = c.NextExecution(0, "submit", "ES", false)
	require.NoError(t, err)
	assert.Equal(t, at(20, 9, 1, 0), res.At)
}

func TestInWorkingHours(t *testing.T) {
	c := newCalc(t, at(20, 10, 0, 0), spainPlan(t))
	assert.True(t, c.InWorkingHours("ES", at(20, 10, 0, 0)))
	assert.False(t, c.InWorkingHours("ES", at(20, 14, 30, 0)))
	assert.False(t, c.InWorkingHours("ES", at(18, 10, 0, 0)), "Saturday")
	assert.False(t, c.InWorkingHours("IT", at(20, 10, 0, 0)))
}

func TestParseDays(t *testing.T) {
	days, err := ParseDays("MON-FRI")
	require.NoError(t, err)
	assert.Equal(t, [7]bool{false, true, true, true, true, true, false}, days)

	days, err = ParseDays("1,2,7")
	require.NoError(t, err)
	assert.Equal(t, [7]bool{true, true, true, false, false, false, false}, days)

	days, err = ParseDays("saturday, Sun")
	require.NoError(t, err)
	assert.True(t, days[time.Saturday])
	assert.True(t, days[time.Sunday])

	_, err = ParseDays("FUNDAY")
	assert.Error(t, err)
}

func TestParseCNTimeToWall(t *testing.T) {
	madridSummer := time.FixedZone("CEST", 2*3600)

	ts, err := ParseCNTime("2025-10-23T02:00:00+02:00", madridSummer)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-23 02:00:00", FormatWall(ts))

	ts, err = ParseCNTime("2025-10-23T00:00:00Z", madridSummer)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-23 02:00:00", FormatWall(ts))

	wall := ToWall(ts, madridSummer)
	assert.Equal(t, time.UTC, wall.Location())
	assert.Equal(t, 2, wall.Hour())
	assert.True(t, FromWall(wall, madridSummer).Equal(ts))

	_, err = ParseCNTime("yesterday", madridSummer)
	assert.Error(t, err)
}
