// Package pipeline wires acquisition, parsing and rendering together: one
// Run converts one calendar source into one Org file, and Scheduler repeats
// that for every configured source on a cron schedule.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ics2org/internal/config"
	"ics2org/internal/ics"
	appLog "ics2org/internal/log"
	"ics2org/internal/metric"
	"ics2org/internal/model"
	"ics2org/internal/org"
)

// Job is one source and the file its outline is written to.
type Job struct {
	Source ics.Source
	Output string
}

// Result summarises a finished Run.
type Result struct {
	Job       Job
	Events    int
	FromCache bool
	Duration  time.Duration
}

// Convert fetches and parses src and renders the outline. It does not
// write anything.
func Convert(ctx context.Context, f *ics.Fetcher, src ics.Source, opts org.Options) ([]model.Event, []byte, ics.FetchResult, error) {
	res, err := f.FetchOne(ctx, src)
	if err != nil {
		return nil, nil, res, err
	}

	events, err := ics.ParseBytes(res.Body)
	if err != nil {
		return events, nil, res, fmt.Errorf("parsing %s: %w", src.ID, err)
	}

	var buf bytes.Buffer
	if err := org.Write(&buf, events, opts); err != nil {
		return events, nil, res, fmt.Errorf("rendering %s: %w", src.ID, err)
	}
	return events, buf.Bytes(), res, nil
}

// Run converts job.Source and writes the outline to job.Output atomically.
func Run(ctx context.Context, f *ics.Fetcher, job Job, opts org.Options) (Result, error) {
	started := time.Now()
	result := Result{Job: job}

	events, out, res, err := Convert(ctx, f, job.Source, opts)
	if err != nil {
		metric.Conversion(false)
		return result, err
	}
	if err := WriteFileAtomic(job.Output, out); err != nil {
		metric.Conversion(false)
		return result, fmt.Errorf("writing %s: %w", job.Output, err)
	}

	result.Events = len(events)
	result.FromCache = res.FromCache
	result.Duration = time.Since(started)
	metric.Conversion(true)

	appLog.Info("calendar converted",
		"id", job.Source.ID,
		"output", job.Output,
		"event_count", result.Events,
		"from_cache", result.FromCache,
		"duration", result.Duration,
	)
	return result, nil
}

// OutputPath derives the Org file for an input path: a trailing ".ics"
// (any case) becomes ".org", anything else gets ".org" appended.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	if strings.EqualFold(ext, ".ics") {
		return strings.TrimSuffix(input, ext) + ".org"
	}
	return input + ".org"
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// JobsFromConfig builds one Job per configured source. Local sources
// without an explicit output write next to the input; remote ones write
// "<id>.org" in the working directory.
func JobsFromConfig(cfg *config.Config) []Job {
	jobs := make([]Job, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		src := ics.Source{ID: s.Key(), URL: s.URL}
		out := s.Output
		if out == "" {
			if src.IsRemote() {
				out = unsafeFileChars.ReplaceAllString(src.ID, "_") + ".org"
			} else {
				out = OutputPath(strings.TrimPrefix(s.URL, "file://"))
			}
		}
		jobs = append(jobs, Job{Source: src, Output: out})
	}
	return jobs
}

// RenderOptions maps configuration onto renderer options.
func RenderOptions(cfg *config.Config) org.Options {
	return org.Options{
		Heading:     cfg.Heading,
		IncludeTime: cfg.IncludeTime,
		Details:     cfg.Details,
	}
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ics2org-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
