package ics

import (
	"regexp"
	"strconv"

	appLog "ics2org/internal/log"
	"ics2org/internal/metric"
	"ics2org/internal/model"
)

// Date-time value shapes, all anchored so a UTC value never satisfies the
// local pattern and vice versa.
var (
	localDateTimeRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})$`)
	utcDateTimeRe   = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})Z$`)
	zoneDateTimeRe  = regexp.MustCompile(`^TZID=([^:]+):(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})$`)

	// CN is everything up to the last ":mailto:".
	organizerRe = regexp.MustCompile(`^.*CN=(.+):mailto:(.+)$`)
)

// DecodeDateTime decodes the value part of a DTSTART/DTEND line, i.e. what
// follows "DTSTART:" or "DTSTART;". Recognised shapes:
//
//	20240115T093000                       local
//	20240115T093000Z                      UTC
//	TZID=America/New_York:20240115T093000 time zone label
//
// Anything else logs a warning and yields model.DefaultDateTime.
func DecodeDateTime(s string) model.DateTime {
	if dt, ok := decodeDateTime(s); ok {
		return dt
	}
	appLog.Warn("failed to parse date-time", "value", s)
	metric.DecodeFailure(metric.FieldDateTime)
	return model.DefaultDateTime()
}

func decodeDateTime(s string) (model.DateTime, bool) {
	if m := localDateTimeRe.FindStringSubmatch(s); m != nil {
		return fromDigits(model.Local(), m[1:])
	}
	if m := utcDateTimeRe.FindStringSubmatch(s); m != nil {
		return fromDigits(model.UTC(), m[1:])
	}
	if m := zoneDateTimeRe.FindStringSubmatch(s); m != nil {
		return fromDigits(model.TimeZone(m[1]), m[2:])
	}
	return model.DateTime{}, false
}

// fromDigits builds a DateTime from the six fixed-width groups
// year, month, day, hour, minute, second.
func fromDigits(format model.DateTimeFormat, groups []string) (model.DateTime, bool) {
	if len(groups) != 6 {
		return model.DateTime{}, false
	}
	year, err := strconv.ParseUint(groups[0], 10, 32)
	if err != nil {
		return model.DateTime{}, false
	}
	var two [5]uint8
	for i, g := range groups[1:] {
		n, err := strconv.ParseUint(g, 10, 8)
		if err != nil {
			return model.DateTime{}, false
		}
		two[i] = uint8(n)
	}
	return model.DateTime{
		Format: format,
		Year:   uint32(year),
		Month:  two[0],
		Day:    two[1],
		Hour:   two[2],
		Minute: two[3],
		Second: two[4],
	}, true
}

// DecodeOrganizer decodes the value part of an ORGANIZER line, expected as
// "<params>CN=<name>:mailto:<address>". A value of any other shape yields
// the zero Organizer.
func DecodeOrganizer(s string) model.Organizer {
	m := organizerRe.FindStringSubmatch(s)
	if m == nil {
		appLog.Debug("organizer did not match", "value", s)
		metric.DecodeFailure(metric.FieldOrganizer)
		return model.Organizer{}
	}
	return model.Organizer{
		Calendar: m[1],
		MailTo:   m[2],
	}
}
