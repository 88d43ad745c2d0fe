package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

func officeHours(t *testing.T, tz string, holidays ...domain.HolidayRange) *Calendar {
	t.Helper()
	cfg := domain.BusinessCalendar{ID: "office", Name: "Office", Timezone: tz, Holidays: holidays}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		cfg.Windows = append(cfg.Windows, domain.WorkingWindow{Weekday: domain.Weekday(wd), HourFrom: 9, HourTo: 17})
	}
	cal, err := New(cfg)
	require.NoError(t, err)
	return cal
}

func at(day, hour, minute int) time.Time {
	// March 2024: the 1st is a Friday, the 4th a Monday.
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
}

func TestAddWorkingDuration_SpansWeekend(t *testing.T) {
	cal := officeHours(t, "UTC")
	friday := at(1, 16, 0)

	tests := []struct {
		name string
		dur  time.Duration
		want time.Time
	}{
		{"within the same window", 30 * time.Minute, at(1, 16, 30)},
		{"exactly to window end", time.Hour, at(1, 17, 0)},
		{"three hours", 3 * time.Hour, at(4, 11, 0)},
		{"four hours", 4 * time.Hour, at(4, 12, 0)},
		{"full week", 40 * time.Hour, at(8, 16, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.AddWorkingDuration(friday, tt.dur)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestAddWorkingDuration_StartOutsideWindow(t *testing.T) {
	cal := officeHours(t, "UTC")

	got, err := cal.AddWorkingDuration(at(2, 10, 0), 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, at(4, 11, 0).Equal(got))

	got, err = cal.AddWorkingDuration(at(4, 7, 0), time.Hour)
	require.NoError(t, err)
	assert.True(t, at(4, 10, 0).Equal(got))
}

func TestAddWorkingDuration_SkipsHolidays(t *testing.T) {
	monday := domain.Date{Year: 2024, Month: time.March, Day: 4}
	cal := officeHours(t, "UTC", domain.HolidayRange{Name: "Founders Day", DateFrom: monday, DateTo: monday})

	got, err := cal.AddWorkingDuration(at(1, 16, 0), 4*time.Hour)
	require.NoError(t, err)
	assert.True(t, at(5, 12, 0).Equal(got))
}

func TestAddWorkingDuration_ZeroAndNegative(t *testing.T) {
	cal := officeHours(t, "UTC")
	start := at(2, 3, 17)

	got, err := cal.AddWorkingDuration(start, 0)
	require.NoError(t, err)
	assert.Equal(t, start, got)

	got, err = cal.AddWorkingDuration(start, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, start, got)
}

func TestAddWorkingDuration_EmptyCalendarIsWallClock(t *testing.T) {
	cal, err := New(domain.BusinessCalendar{Name: "empty"})
	require.NoError(t, err)
	start := at(2, 23, 59)

	for _, d := range []time.Duration{time.Minute, 5 * time.Hour, 100 * time.Hour} {
		got, err := cal.AddWorkingDuration(start, d)
		require.NoError(t, err)
		assert.Equal(t, start.Add(d), got)
	}
	assert.True(t, cal.IsWorkingInstant(start))
}

func TestAddWorkingDuration_Monotonic(t *testing.T) {
	cal := officeHours(t, "America/New_York")
	start := time.Date(2024, time.March, 8, 20, 30, 0, 0, time.UTC)

	prev := start
	for d := time.Duration(0); d <= 60*time.Hour; d += 25 * time.Minute {
		got, err := cal.AddWorkingDuration(start, d)
		require.NoError(t, err)
		assert.False(t, got.Before(prev), "duration %s went backwards", d)
		prev = got
	}
}

func TestAddWorkingDuration_HonoursTimezone(t *testing.T) {
	cal := officeHours(t, "Europe/Berlin")
	// 15:00 UTC is 16:00 in Berlin in March before DST.
	got, err := cal.AddWorkingDuration(at(1, 15, 0), 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, at(4, 9, 0).Equal(got), "got %s", got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestAddWorkingDuration_MergesOverlappingWindows(t *testing.T) {
	mon := domain.Weekday(time.Monday)
	cal, err := New(domain.BusinessCalendar{Windows: []domain.WorkingWindow{
		{Weekday: mon, HourFrom: 11, HourTo: 14},
		{Weekday: mon, HourFrom: 8.5, HourTo: 12},
	}})
	require.NoError(t, err)

	got, err := cal.AddWorkingDuration(at(4, 0, 0), 5*time.Hour)
	require.NoError(t, err)
	assert.True(t, at(4, 13, 30).Equal(got))

	got, err = cal.AddWorkingDuration(at(4, 0, 0), 6*time.Hour)
	require.NoError(t, err)
	assert.True(t, at(11, 9, 0).Equal(got))
}

func TestIsWorkingInstant(t *testing.T) {
	closure := domain.Date{Year: 2024, Month: time.March, Day: 5}
	cal := officeHours(t, "UTC", domain.HolidayRange{Name: "closure", DateFrom: closure, DateTo: closure})

	assert.True(t, cal.IsWorkingInstant(at(1, 9, 0)), "window start is inclusive")
	assert.True(t, cal.IsWorkingInstant(at(1, 17, 0)), "window end is inclusive")
	assert.False(t, cal.IsWorkingInstant(at(1, 17, 0).Add(time.Second)))
	assert.False(t, cal.IsWorkingInstant(at(1, 8, 59)))
	assert.False(t, cal.IsWorkingInstant(at(2, 12, 0)), "saturday")
	assert.False(t, cal.IsWorkingInstant(at(5, 12, 0)), "holiday")
	assert.True(t, cal.IsWorkingInstant(at(6, 12, 0)))
}

func TestIsWorkingInstant_HolidayUsesLocalDate(t *testing.T) {
	sunday := domain.Date{Year: 2024, Month: time.March, Day: 3}
	monday := domain.Date{Year: 2024, Month: time.March, Day: 4}
	windows := []domain.WorkingWindow{{Weekday: domain.Weekday(time.Monday), HourFrom: 0, HourTo: 24}}

	sundayOff, err := New(domain.BusinessCalendar{
		Timezone: "Asia/Tokyo",
		Windows:  windows,
		Holidays: []domain.HolidayRange{{Name: "utc date", DateFrom: sunday, DateTo: sunday}},
	})
	require.NoError(t, err)
	mondayOff, err := New(domain.BusinessCalendar{
		Timezone: "Asia/Tokyo",
		Windows:  windows,
		Holidays: []domain.HolidayRange{{Name: "local date", DateFrom: monday, DateTo: monday}},
	})
	require.NoError(t, err)

	// Sunday 20:00 UTC is Monday 05:00 in Tokyo.
	assert.True(t, sundayOff.IsWorkingInstant(at(3, 20, 0)))
	assert.False(t, mondayOff.IsWorkingInstant(at(3, 20, 0)))
}

func TestNew_RejectsMalformedConfiguration(t *testing.T) {
	mon := domain.Weekday(time.Monday)
	day := domain.Date{Year: 2024, Month: time.January, Day: 2}
	tests := []struct {
		name string
		cfg  domain.BusinessCalendar
	}{
		{"from after to", domain.BusinessCalendar{Windows: []domain.WorkingWindow{{Weekday: mon, HourFrom: 17, HourTo: 9}}}},
		{"past midnight", domain.BusinessCalendar{Windows: []domain.WorkingWindow{{Weekday: mon, HourFrom: 9, HourTo: 25}}}},
		{"negative start", domain.BusinessCalendar{Windows: []domain.WorkingWindow{{Weekday: mon, HourFrom: -1, HourTo: 2}}}},
		{"unknown zone", domain.BusinessCalendar{Timezone: "Mars/Olympus"}},
		{"holidays only", domain.BusinessCalendar{Holidays: []domain.HolidayRange{{Name: "x", DateFrom: day, DateTo: day}}}},
		{"zero-length windows only", domain.BusinessCalendar{Windows: []domain.WorkingWindow{{Weekday: mon, HourFrom: 9, HourTo: 9}}}},
		{"holiday reversed", domain.BusinessCalendar{
			Windows:  []domain.WorkingWindow{{Weekday: mon, HourFrom: 9, HourTo: 17}},
			Holidays: []domain.HolidayRange{{Name: "x", DateFrom: day, DateTo: domain.Date{Year: 2024, Month: time.January, Day: 1}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.cfg))
		})
	}
}

func TestNew_ZeroLengthWindowsAloneAreRejected(t *testing.T) {
	mon, tue := domain.Weekday(time.Monday), domain.Weekday(time.Tuesday)
	_, err := New(domain.BusinessCalendar{Name: "z", Windows: []domain.WorkingWindow{
		{Weekday: mon, HourFrom: 9, HourTo: 9},
		{Weekday: tue, HourFrom: 0, HourTo: 0},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no working time per week")

	// A zero-length window next to a real one is accepted and contributes nothing.
	cal, err := New(domain.BusinessCalendar{Name: "mixed", Timezone: "UTC", Windows: []domain.WorkingWindow{
		{Weekday: mon, HourFrom: 9, HourTo: 9},
		{Weekday: tue, HourFrom: 9, HourTo: 17},
	}})
	require.NoError(t, err)
	monday := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsWorkingInstant(monday.Add(time.Minute)))
	deadline, err := cal.AddWorkingDuration(monday, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC), deadline)
}
