package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday wraps time.Weekday with lowercase text encoding ("monday").
type Weekday time.Weekday

func (d Weekday) String() string {
	return strings.ToLower(time.Weekday(d).String())
}

func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(text []byte) error {
	name := strings.TrimSpace(string(text))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), name) {
			*d = Weekday(wd)
			return nil
		}
	}
	return fmt.Errorf("unknown weekday %q", text)
}

// Date is a civil date without time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WorkingWindow is one block of working hours on a weekday. Hours are
// fractional, so 8.5 means 08:30.
type WorkingWindow struct {
	Weekday  Weekday `json:"weekday" yaml:"weekday"`
	HourFrom float64 `json:"hour_from" yaml:"hour_from"`
	HourTo   float64 `json:"hour_to" yaml:"hour_to"`
}

// HolidayRange is an inclusive range of non-working dates.
type HolidayRange struct {
	Name     string `json:"name" yaml:"name"`
	DateFrom Date   `json:"date_from" yaml:"date_from"`
	DateTo   Date   `json:"date_to" yaml:"date_to"`
}

// Contains reports whether date falls within the range.
func (h HolidayRange) Contains(date Date) bool {
	return !date.Before(h.DateFrom) && !h.DateTo.Before(date)
}

// BusinessCalendar is the stored configuration of a working-time calendar.
type BusinessCalendar struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Timezone  string          `json:"timezone" yaml:"timezone"`
	Windows   []WorkingWindow `json:"windows" yaml:"windows"`
	Holidays  []HolidayRange  `json:"holidays" yaml:"holidays"`
	CreatedAt time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"-"`
}
