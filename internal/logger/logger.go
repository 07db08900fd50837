package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	mw "github.com/stockroomhq/stockroom/internal/http"
	"github.com/stockroomhq/stockroom/internal/telemetry"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Requests returns middleware that logs each request with its status
// and duration, and attaches the logger to the request context so
// handlers can use zerolog.Ctx.
func Requests(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			ctx := logger.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", mw.ClientIPFromContext(r.Context())).
				Logger().WithContext(r.Context())

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			duration := time.Since(started)
			telemetry.GetMetrics().RequestDuration.Record(r.Context(), float64(duration.Milliseconds()))

			zerolog.Ctx(ctx).Info().
				Int("status", recorder.status).
				Dur("duration", duration).
				Msg("http request")
		})
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
