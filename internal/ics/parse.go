package ics

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	appLog "ics2org/internal/log"
	"ics2org/internal/metric"
	"ics2org/internal/model"
)

// Property keys recognised by the line parser. Any other line only resets
// the continuation marker.
const (
	keyEndEvent    = "END:VEVENT"
	keyStart       = "DTSTART"
	keyEnd         = "DTEND"
	keyDescription = "DESCRIPTION:"
	keyLocation    = "LOCATION:"
	keySummary     = "SUMMARY:"
	keyOrganizer   = "ORGANIZER;"
)

// propertyKind tells the parser which text field a folded continuation line
// extends.
type propertyKind int

const (
	kindNone propertyKind = iota
	kindDescription
	kindLocation
	kindSummary
)

// Parser turns calendar lines into events in a single forward pass. Feed it
// one line at a time (newline already removed) and collect the result with
// Events. The zero value is not ready for use; call NewParser.
type Parser struct {
	events  []model.Event
	current model.Event
	last    propertyKind
}

// NewParser returns a parser with an empty event under construction.
func NewParser() *Parser {
	return &Parser{
		events:  make([]model.Event, 0),
		current: model.NewEvent(),
	}
}

// Feed classifies one line and applies it to the event under construction.
// No line is ever rejected; unknown lines only reset the continuation
// marker.
func (p *Parser) Feed(line string) {
	switch {
	case strings.HasPrefix(line, " "):
		p.appendContinuation(line[1:])

	case line == keyEndEvent:
		p.events = append(p.events, p.current)
		p.current = model.NewEvent()

	case strings.HasPrefix(line, keyStart):
		p.current.Start = DecodeDateTime(dropSeparator(line[len(keyStart):]))

	case strings.HasPrefix(line, keyEnd):
		p.current.End = DecodeDateTime(dropSeparator(line[len(keyEnd):]))

	case strings.HasPrefix(line, keyDescription):
		p.current.Description = line[len(keyDescription):]
		p.last = kindDescription

	case strings.HasPrefix(line, keyLocation):
		p.current.Location = line[len(keyLocation):]
		p.last = kindLocation

	case strings.HasPrefix(line, keySummary):
		p.current.Title = line[len(keySummary):]
		p.last = kindSummary

	case strings.HasPrefix(line, keyOrganizer):
		p.current.Organizer = DecodeOrganizer(line[len(keyOrganizer):])

	default:
		p.last = kindNone
	}
}

func (p *Parser) appendContinuation(s string) {
	switch p.last {
	case kindDescription:
		p.current.Description += s
	case kindLocation:
		p.current.Location += s
	case kindSummary:
		p.current.Title += s
	}
}

// Events returns the events sealed so far, in terminator order. The event
// still under construction is never included.
func (p *Parser) Events() []model.Event {
	return p.events
}

// dropSeparator removes the single ':' or ';' that follows a DTSTART/DTEND
// key. It drops one rune so a multi-byte character never gets split.
func dropSeparator(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}

// Parse reads r line by line and returns the terminated events. Lines have
// no length limit. The error is only ever a read failure of r; the events
// decoded before it are still returned.
func Parse(r io.Reader) ([]model.Event, error) {
	p := NewParser()
	br := bufio.NewReader(r)

	lines := 0
	var readErr error
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.Feed(trimLineEnding(line))
			lines++
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	events := p.Events()
	metric.EventsParsed(len(events))

	if readErr != nil {
		appLog.Error("calendar read failed", readErr, "lines", lines, "event_count", len(events))
		return events, readErr
	}

	appLog.Debug("calendar parse completed", "lines", lines, "event_count", len(events))
	return events, nil
}

// trimLineEnding strips a trailing "\n" or "\r\n".
func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// ParseBytes is Parse over an in-memory calendar body. Reading from memory
// does not fail, so the error is always nil.
func ParseBytes(body []byte) ([]model.Event, error) {
	return Parse(bytes.NewReader(body))
}

// ParseLines parses lines that are already split.
func ParseLines(lines []string) []model.Event {
	p := NewParser()
	for _, line := range lines {
		p.Feed(line)
	}
	events := p.Events()
	metric.EventsParsed(len(events))
	return events
}
