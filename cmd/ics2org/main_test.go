package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:1@example.com\r\n" +
	"DTSTART:20240115T093000\r\n" +
	"SUMMARY:Planning\r\n" +
	"LOCATION:Room 42\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "basic.ics")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootConvertsNextToInput(t *testing.T) {
	in := writeSample(t)

	if _, err := execute(t, in); err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	got, err := os.ReadFile(strings.TrimSuffix(in, ".ics") + ".org")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	want := "* Google Calendar\n** Planning\nSCHEDULED: <2024-01-15 Mon>\n"
	if string(got) != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConvertToStdout(t *testing.T) {
	in := writeSample(t)

	out, err := execute(t, "convert", in, "-o", "-", "--heading", "Work", "--include-time", "--details")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"* Work\n", "SCHEDULED: <2024-01-15 Mon 09:30>\n", ":LOCATION: Room 42\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestConvertMissingInput(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.ics"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("execute() error = %v, want missing file error", err)
	}
}

func TestConvertRemoteNeedsOutput(t *testing.T) {
	_, err := execute(t, "https://example.com/cal.ics")
	if err == nil || !strings.Contains(err.Error(), "--output") {
		t.Errorf("execute() error = %v, want --output error", err)
	}
}

func TestCheck(t *testing.T) {
	in := writeSample(t)
	out, err := execute(t, "check", "--strict", in)
	if err != nil {
		t.Fatalf("execute() error = %v, output:\n%s", err, out)
	}
	if !strings.Contains(out, "line parser: 1 events; reference parser: 1 events") {
		t.Errorf("check output = %q", out)
	}
}

func TestWatchOnceWithConfig(t *testing.T) {
	in := writeSample(t)
	dir := filepath.Dir(in)
	cfgPath := filepath.Join(dir, "config.yaml")
	out := filepath.Join(dir, "out", "work.org")
	yml := "heading: Team\nsources:\n  - id: work\n    url: " + in + "\n    output: " + out + "\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "watch", "--once", "--config", cfgPath); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.HasPrefix(string(got), "* Team\n") {
		t.Errorf("output = %q", got)
	}
}

func TestWatchWithoutSources(t *testing.T) {
	_, err := execute(t, "watch", "--once")
	if err == nil || !strings.Contains(err.Error(), "no sources") {
		t.Errorf("execute() error = %v, want no sources error", err)
	}
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "chatty", writeSample(t))
	if err == nil {
		t.Error("execute() error = nil, want log level error")
	}
}
