// Package calendar answers working-time questions for business calendars.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// maxSearchDays bounds the forward walk in AddWorkingDuration.
const maxSearchDays = 366 * 20

var ErrNoWorkingTime = errors.New("calendar: no working time within search horizon")

// span is a working interval expressed as offsets from local midnight.
type span struct {
	from time.Duration
	to   time.Duration
}

// Calendar is a validated, immutable working-time calendar.
type Calendar struct {
	id       string
	loc      *time.Location
	days     [7][]span
	holidays []domain.HolidayRange
	always   bool
}

// AlwaysOpen returns the 24/7 calendar used when a policy has none.
func AlwaysOpen() *Calendar {
	return &Calendar{loc: time.UTC, always: true}
}

// Validate reports configuration errors without building the calendar.
func Validate(cfg domain.BusinessCalendar) error {
	_, err := New(cfg)
	return err
}

// New validates cfg and compiles it. A calendar with neither windows nor
// holidays is treated as 24/7.
func New(cfg domain.BusinessCalendar) (*Calendar, error) {
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("calendar %q: unknown timezone %q: %w", cfg.Name, cfg.Timezone, err)
	}

	c := &Calendar{id: cfg.ID, loc: loc}
	if len(cfg.Windows) == 0 && len(cfg.Holidays) == 0 {
		c.always = true
		return c, nil
	}

	var weekly time.Duration
	for i, w := range cfg.Windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return nil, fmt.Errorf("calendar %q: window %d has invalid weekday %d", cfg.Name, i, w.Weekday)
		}
		if w.HourFrom < 0 || w.HourTo > 24 || w.HourFrom > w.HourTo {
			return nil, fmt.Errorf("calendar %q: window %d on %s has invalid bounds %.2f-%.2f",
				cfg.Name, i, w.Weekday, w.HourFrom, w.HourTo)
		}
		s := span{from: hoursToDuration(w.HourFrom), to: hoursToDuration(w.HourTo)}
		c.days[w.Weekday] = append(c.days[w.Weekday], s)
		weekly += s.to - s.from
	}
	// Zero-length windows are legal, but a week made only of them would
	// never reach a deadline.
	if weekly == 0 {
		return nil, fmt.Errorf("calendar %q: no working time per week", cfg.Name)
	}
	for i := range c.days {
		c.days[i] = merge(c.days[i])
	}

	for i, h := range cfg.Holidays {
		if h.DateFrom.IsZero() || h.DateTo.IsZero() {
			return nil, fmt.Errorf("calendar %q: holiday %d is missing dates", cfg.Name, i)
		}
		if h.DateTo.Before(h.DateFrom) {
			return nil, fmt.Errorf("calendar %q: holiday %q ends before it starts", cfg.Name, h.Name)
		}
	}
	c.holidays = append([]domain.HolidayRange(nil), cfg.Holidays...)
	return c, nil
}

// ID returns the configuration identifier, empty for the 24/7 default.
func (c *Calendar) ID() string { return c.id }

// Location returns the calendar time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// IsWorkingInstant reports whether t is working time. Holidays exclude the
// whole local date; window bounds are inclusive.
func (c *Calendar) IsWorkingInstant(t time.Time) bool {
	if c.always {
		return true
	}
	local := t.In(c.loc)
	date := domain.DateOf(local)
	if c.isHoliday(date) {
		return false
	}
	for _, s := range c.days[local.Weekday()] {
		start, end := c.bounds(date, s)
		if !local.Before(start) && !local.After(end) {
			return true
		}
	}
	return false
}

// AddWorkingDuration returns the instant reached after d of working time
// measured forward from start. Non-positive durations return start.
func (c *Calendar) AddWorkingDuration(start time.Time, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return start, nil
	}
	if c.always {
		return start.Add(d), nil
	}

	remaining := d
	cursor := start.In(c.loc)
	day := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, c.loc)

	for i := 0; i < maxSearchDays; i++ {
		date := domain.DateOf(day)
		if !c.isHoliday(date) {
			for _, s := range c.days[day.Weekday()] {
				from, to := c.bounds(date, s)
				if !to.After(cursor) {
					continue
				}
				if from.Before(cursor) {
					from = cursor
				}
				available := to.Sub(from)
				if available >= remaining {
					return from.Add(remaining).In(start.Location()), nil
				}
				remaining -= available
			}
		}
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, c.loc)
	}
	return time.Time{}, ErrNoWorkingTime
}

func (c *Calendar) isHoliday(date domain.Date) bool {
	for _, h := range c.holidays {
		if h.Contains(date) {
			return true
		}
	}
	return false
}

// bounds resolves a span to instants on date using wall-clock arithmetic.
func (c *Calendar) bounds(date domain.Date, s span) (time.Time, time.Time) {
	from := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, int(s.from), c.loc)
	to := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, int(s.to), c.loc)
	return from, to
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour)).Round(time.Second)
}

func merge(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.from <= last.to {
			if s.to > last.to {
				last.to = s.to
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
