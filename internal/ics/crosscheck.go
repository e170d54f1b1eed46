package ics

import (
	"bytes"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "ics2org/internal/log"
)

// CrossCheckReport compares the line parser with a full iCalendar parser
// over the same calendar body.
type CrossCheckReport struct {
	// Events is the number of events the line parser emitted.
	Events int
	// LibraryEvents is the number of VEVENT components the full parser saw.
	LibraryEvents int
	// LibraryErr is set when the full parser rejected the body.
	LibraryErr error
	// MissingSummaries lists SUMMARY values the full parser found that no
	// line-parsed event carries as its title, e.g. parameterised SUMMARY
	// properties.
	MissingSummaries []string
}

// Consistent reports whether both parsers agree on the event count and
// every library summary was recovered.
func (r CrossCheckReport) Consistent() bool {
	return r.LibraryErr == nil && r.Events == r.LibraryEvents && len(r.MissingSummaries) == 0
}

func (r CrossCheckReport) String() string {
	if r.LibraryErr != nil {
		return fmt.Sprintf("line parser: %d events; reference parser failed: %v", r.Events, r.LibraryErr)
	}
	return fmt.Sprintf("line parser: %d events; reference parser: %d events; missing summaries: %d",
		r.Events, r.LibraryEvents, len(r.MissingSummaries))
}

// CrossCheck parses body with both the line parser and golang-ical and
// reports where they disagree. A read failure of the line parser is the
// only returned error; a library rejection is recorded in the report.
func CrossCheck(src Source, body []byte) (CrossCheckReport, error) {
	events, err := ParseBytes(body)
	if err != nil {
		return CrossCheckReport{}, err
	}

	report := CrossCheckReport{Events: len(events)}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Warn("reference ics parse failed", "id", src.ID, "url", redactURL(src.URL), "err", err)
		report.LibraryErr = err
		return report, nil
	}

	titles := make(map[string]struct{}, len(events))
	for _, ev := range events {
		titles[ev.Title] = struct{}{}
		titles[unescapeText(ev.Title)] = struct{}{}
	}

	vevents := cal.Events()
	report.LibraryEvents = len(vevents)
	for _, ve := range vevents {
		p := ve.GetProperty(ical.ComponentPropertySummary)
		if p == nil {
			continue
		}
		if _, ok := titles[p.Value]; ok {
			continue
		}
		if _, ok := titles[unescapeText(p.Value)]; ok {
			continue
		}
		report.MissingSummaries = append(report.MissingSummaries, p.Value)
	}

	appLog.Debug("ics cross-check completed",
		"id", src.ID,
		"events", report.Events,
		"library_events", report.LibraryEvents,
		"missing_summaries", len(report.MissingSummaries),
	)
	return report, nil
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n")

// unescapeText undoes RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
