// Package metric holds the Prometheus collectors for parse and conversion
// activity. Collectors live on a private registry so tests and multiple
// servers in one process never collide on the default one.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	FieldDateTime  = "datetime"
	FieldOrganizer = "organizer"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	registry = prometheus.NewRegistry()

	eventsParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ics2org_events_parsed_total",
		Help: "Number of VEVENT records emitted by the line parser",
	})
	decodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ics2org_decode_failures_total",
		Help: "Property values that fell back to their default because they did not match",
	}, []string{"field"})
	conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ics2org_conversions_total",
		Help: "Completed fetch+parse+render runs by outcome",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		eventsParsed,
		decodeFailures,
		conversions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// EventsParsed adds n emitted events.
func EventsParsed(n int) {
	eventsParsed.Add(float64(n))
}

// DecodeFailure counts a value for field that was replaced by its default.
func DecodeFailure(field string) {
	decodeFailures.WithLabelValues(field).Inc()
}

// Conversion counts one pipeline run.
func Conversion(ok bool) {
	if ok {
		conversions.WithLabelValues(ResultOK).Inc()
		return
	}
	conversions.WithLabelValues(ResultError).Inc()
}

// Registry exposes the collectors, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
