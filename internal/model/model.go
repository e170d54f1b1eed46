package model

import (
	"fmt"
	"time"
)

// FormatKind records how a DTSTART/DTEND value was encoded in the source
// calendar. It says nothing about the resolved offset.
type FormatKind int

const (
	// FormatUTC is a value with a trailing "Z".
	FormatUTC FormatKind = iota
	// FormatLocal is a floating value with no zone marker.
	FormatLocal
	// FormatTimeZone is a value qualified by a TZID parameter.
	FormatTimeZone
)

func (k FormatKind) String() string {
	switch k {
	case FormatUTC:
		return "utc"
	case FormatLocal:
		return "local"
	case FormatTimeZone:
		return "timezone"
	default:
		return fmt.Sprintf("FormatKind(%d)", int(k))
	}
}

// DateTimeFormat is the encoding variant of a DateTime. TZID is only
// meaningful when Kind is FormatTimeZone; it is kept as an opaque label.
type DateTimeFormat struct {
	Kind FormatKind
	TZID string
}

// Local, UTC and TimeZone build the three format variants.
func Local() DateTimeFormat { return DateTimeFormat{Kind: FormatLocal} }

func UTC() DateTimeFormat { return DateTimeFormat{Kind: FormatUTC} }

func TimeZone(label string) DateTimeFormat {
	return DateTimeFormat{Kind: FormatTimeZone, TZID: label}
}

func (f DateTimeFormat) String() string {
	if f.Kind == FormatTimeZone {
		return "TZID=" + f.TZID
	}
	return f.Kind.String()
}

// DateTime is a calendar timestamp exactly as written in the source. Fields
// are not range checked: a value like month 13 passes through untouched.
type DateTime struct {
	Format DateTimeFormat

	Year   uint32
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// DefaultDateTime is 1970-01-01 00:00:00 UTC, used whenever a value is
// missing or cannot be decoded.
func DefaultDateTime() DateTime {
	return DateTime{
		Format: UTC(),
		Year:   1970,
		Month:  1,
		Day:    1,
	}
}

// IsDefault reports whether d equals DefaultDateTime.
func (d DateTime) IsDefault() bool {
	return d == DefaultDateTime()
}

// ValidDate reports whether the year/month/day triple names a real
// calendar day.
func (d DateTime) ValidDate() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
	return t.Day() == int(d.Day)
}

// Weekday returns the day of week for the date part. ok is false when the
// date is not a real calendar day.
func (d DateTime) Weekday() (wd time.Weekday, ok bool) {
	if !d.ValidDate() {
		return 0, false
	}
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC).Weekday(), true
}

// HasTime reports whether any of hour/minute/second is non-zero.
func (d DateTime) HasTime() bool {
	return d.Hour != 0 || d.Minute != 0 || d.Second != 0
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d (%s)",
		d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Format)
}

// Organizer is the decoded ORGANIZER property: the CN display name and the
// mailto address. Both are empty when absent or malformed.
type Organizer struct {
	Calendar string
	MailTo   string
}

// IsZero reports whether no organizer was decoded.
func (o Organizer) IsZero() bool {
	return o.Calendar == "" && o.MailTo == ""
}

// Event is one VEVENT as produced by the line parser.
type Event struct {
	Start DateTime
	End   DateTime

	Title       string
	Description string
	Location    string

	Organizer Organizer
}

// NewEvent returns an empty event whose start and end carry the default
// DateTime.
func NewEvent() Event {
	return Event{
		Start: DefaultDateTime(),
		End:   DefaultDateTime(),
	}
}
