package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
)

// Logger logs requests and counts responses by status code.
type Logger struct {
	metric *metric.Metrics
}

type logWriter struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (l *logWriter) WriteHeader(code int) {
	l.statusCode = code
	l.ResponseWriter.WriteHeader(code)
}

func (l *logWriter) Write(b []byte) (int, error) {
	if l.statusCode == 0 {
		l.statusCode = http.StatusOK
	}
	return l.ResponseWriter.Write(b)
}

// Hijack hijacks the connection. This is necessary for using websockets.
func (l *logWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	l.hijacked = true
	l.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// NewLogger creates a new Logger middleware.
func NewLogger(m *metric.Metrics) *Logger {
	return &Logger{metric: m}
}

// Intercept logs the request and response.
func (l Logger) Intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &logWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.statusCode == 0 {
			rw.statusCode = http.StatusOK
		}
		l.metric.ObserveResponse(rw.statusCode)

		event := log.Debug()
		if rw.statusCode >= 400 {
			event = log.Warn()
		}
		event.Str("module", "middleware").Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rw.statusCode).Dur("elapsed", time.Since(start)).Bool("hijacked", rw.hijacked).
			Msg("request handled")
	})
}
