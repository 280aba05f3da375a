package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/middleware"
)

func TestSet(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		wantCode   int
		wantCalled bool
	}{
		{
			name:     "given preflight request when intercepted then answer without calling next",
			method:   http.MethodOptions,
			wantCode: http.StatusOK,
		},
		{
			name:       "given get request when intercepted then call next",
			method:     http.MethodGet,
			wantCode:   http.StatusTeapot,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusTeapot)
			})
			h := middleware.Set(next, middleware.NewCORS(), middleware.NewLogger(metric.New(metric.Config{})))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
