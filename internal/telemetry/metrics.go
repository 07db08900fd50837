package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/stockroomhq/stockroom"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session metrics
	LoginsTotal             metric.Int64Counter
	LoginFailuresTotal      metric.Int64Counter
	RegistrationsTotal      metric.Int64Counter
	LogoutsTotal            metric.Int64Counter
	RefreshTotal            metric.Int64Counter
	RefreshFailuresTotal    metric.Int64Counter
	RefreshReuseDetected    metric.Int64Counter
	AccessTokenVerifyErrors metric.Int64Counter

	// Request metrics
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginsTotal, _ = meter.Int64Counter(
		"stockroom.sessions.logins.total",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"stockroom.sessions.login_failures.total",
		metric.WithDescription("Total number of rejected login attempts"),
		metric.WithUnit("{login}"),
	)

	m.RegistrationsTotal, _ = meter.Int64Counter(
		"stockroom.sessions.registrations.total",
		metric.WithDescription("Total number of accounts registered"),
		metric.WithUnit("{account}"),
	)

	m.LogoutsTotal, _ = meter.Int64Counter(
		"stockroom.sessions.logouts.total",
		metric.WithDescription("Total number of logouts"),
		metric.WithUnit("{logout}"),
	)

	m.RefreshTotal, _ = meter.Int64Counter(
		"stockroom.sessions.refresh.total",
		metric.WithDescription("Total number of successful refresh token rotations"),
		metric.WithUnit("{refresh}"),
	)

	m.RefreshFailuresTotal, _ = meter.Int64Counter(
		"stockroom.sessions.refresh_failures.total",
		metric.WithDescription("Total number of failed refresh attempts"),
		metric.WithUnit("{refresh}"),
	)

	m.RefreshReuseDetected, _ = meter.Int64Counter(
		"stockroom.sessions.refresh_reuse_detected.total",
		metric.WithDescription("Total number of refresh attempts with a stale or replayed token"),
		metric.WithUnit("{refresh}"),
	)

	m.AccessTokenVerifyErrors, _ = meter.Int64Counter(
		"stockroom.sessions.access_token_verify_errors.total",
		metric.WithDescription("Total number of access tokens that failed verification for reasons other than expiry"),
		metric.WithUnit("{token}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"stockroom.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	return m
}
