package model

import (
	"testing"
	"time"
)

func TestDefaultDateTime(t *testing.T) {
	d := DefaultDateTime()
	if d.Format.Kind != FormatUTC || d.Year != 1970 || d.Month != 1 || d.Day != 1 || d.HasTime() {
		t.Errorf("DefaultDateTime() = %v", d)
	}
	if !d.IsDefault() {
		t.Error("IsDefault() = false for the default value")
	}

	ev := NewEvent()
	if !ev.Start.IsDefault() || !ev.End.IsDefault() || !ev.Organizer.IsZero() {
		t.Errorf("NewEvent() = %+v", ev)
	}
}

func TestWeekday(t *testing.T) {
	tests := []struct {
		name   string
		dt     DateTime
		want   time.Weekday
		wantOK bool
	}{
		{"monday", DateTime{Year: 2024, Month: 1, Day: 15}, time.Monday, true},
		{"leap day", DateTime{Year: 2024, Month: 2, Day: 29}, time.Thursday, true},
		{"not a leap year", DateTime{Year: 2023, Month: 2, Day: 29}, 0, false},
		{"month 13", DateTime{Year: 2024, Month: 13, Day: 1}, 0, false},
		{"day zero", DateTime{Year: 2024, Month: 1, Day: 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.dt.Weekday()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Weekday() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		f    DateTimeFormat
		want string
	}{
		{Local(), "local"},
		{UTC(), "utc"},
		{TimeZone("America/New_York"), "TZID=America/New_York"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
