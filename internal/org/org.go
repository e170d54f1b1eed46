// Package org renders parsed calendar events as an Org-mode outline: one
// top-level heading for the calendar and one second-level heading per
// event with a SCHEDULED line.
package org

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"ics2org/internal/model"
)

// DefaultHeading is the top-level heading used when none is configured.
const DefaultHeading = "Google Calendar"

// Options controls rendering.
type Options struct {
	// Heading is the text of the single top-level heading.
	Heading string
	// IncludeTime adds HH:MM to the timestamp when the start carries a
	// time of day. The time is written as encoded; zones are not resolved.
	IncludeTime bool
	// Details adds location, organizer and description below each heading.
	Details bool
}

// Write renders events to w in input order.
func Write(w io.Writer, events []model.Event, opts Options) error {
	heading := opts.Heading
	if heading == "" {
		heading = DefaultHeading
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "* %s\n", heading)
	for _, ev := range events {
		writeEvent(bw, ev, opts)
	}
	return bw.Flush()
}

// Render is Write into a string.
func Render(events []model.Event, opts Options) string {
	var b strings.Builder
	// strings.Builder never fails.
	_ = Write(&b, events, opts)
	return b.String()
}

func writeEvent(w *bufio.Writer, ev model.Event, opts Options) {
	fmt.Fprintf(w, "** %s\n", headline(ev.Title))
	fmt.Fprintf(w, "SCHEDULED: %s\n", Timestamp(ev.Start, opts.IncludeTime))

	if !opts.Details {
		return
	}

	var props [][2]string
	if ev.Location != "" {
		props = append(props, [2]string{"LOCATION", ev.Location})
	}
	if !ev.Organizer.IsZero() {
		props = append(props, [2]string{"ORGANIZER", ev.Organizer.Calendar})
		props = append(props, [2]string{"MAILTO", ev.Organizer.MailTo})
	}
	if len(props) > 0 {
		w.WriteString(":PROPERTIES:\n")
		for _, p := range props {
			fmt.Fprintf(w, ":%s: %s\n", p[0], singleLine(p[1]))
		}
		w.WriteString(":END:\n")
	}

	if ev.Description != "" {
		for _, line := range strings.Split(unescapeNewlines(ev.Description), "\n") {
			// A body line starting with '*' would open a new heading.
			if strings.HasPrefix(line, "*") {
				line = " " + line
			}
			w.WriteString(line)
			w.WriteByte('\n')
		}
	}
}

// Timestamp formats the date part of dt as an active Org timestamp,
// "<2024-01-15 Mon>". With includeTime and a non-midnight time it becomes
// "<2024-01-15 Mon 09:30>". A date that does not exist in the calendar
// keeps its raw digits and has no weekday.
func Timestamp(dt model.DateTime, includeTime bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%04d-%02d-%02d", dt.Year, dt.Month, dt.Day)
	if wd, ok := dt.Weekday(); ok {
		b.WriteString(" ")
		b.WriteString(wd.String()[:3])
	}
	if includeTime && dt.HasTime() {
		fmt.Fprintf(&b, " %02d:%02d", dt.Hour, dt.Minute)
	}
	b.WriteString(">")
	return b.String()
}

func headline(title string) string {
	title = singleLine(title)
	if title == "" {
		return "(no title)"
	}
	return title
}

// singleLine keeps a value on one outline line.
func singleLine(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(unescapeNewlines(s))
	return strings.TrimSpace(s)
}

// unescapeNewlines turns the TEXT escape "\n" into a real newline; other
// escapes are left alone.
func unescapeNewlines(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	return strings.ReplaceAll(s, `\N`, "\n")
}
