package ics

import (
	"testing"
)

func TestCrossCheckAgrees(t *testing.T) {
	report, err := CrossCheck(Source{ID: "sample"}, []byte(twoEvents))
	if err != nil {
		t.Fatalf("CrossCheck() error = %v", err)
	}
	if report.LibraryErr != nil {
		t.Fatalf("library error = %v", report.LibraryErr)
	}
	if report.Events != 2 || report.LibraryEvents != 2 {
		t.Errorf("counts = %d/%d, want 2/2", report.Events, report.LibraryEvents)
	}
	if !report.Consistent() {
		t.Errorf("report not consistent: %s (missing %v)", report, report.MissingSummaries)
	}
}

func TestCrossCheckParameterisedSummary(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:1@example.com\r\n" +
		"DTSTART:20240115T093000Z\r\n" +
		"SUMMARY;LANGUAGE=en:Hello\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	report, err := CrossCheck(Source{ID: "params"}, []byte(body))
	if err != nil {
		t.Fatalf("CrossCheck() error = %v", err)
	}
	if report.LibraryErr != nil {
		t.Fatalf("library error = %v", report.LibraryErr)
	}
	if report.Consistent() {
		t.Fatal("expected an inconsistent report")
	}
	if len(report.MissingSummaries) != 1 || report.MissingSummaries[0] != "Hello" {
		t.Errorf("missing summaries = %v, want [Hello]", report.MissingSummaries)
	}
}

func TestUnescapeText(t *testing.T) {
	got := unescapeText(`a\, b\; c\\d\ne`)
	want := "a, b; c\\d\ne"
	if got != want {
		t.Errorf("unescapeText() = %q, want %q", got, want)
	}
}
