package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/logger"
	"github.com/rahul4469/socialear/internal/metrics"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug")

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(NewRequestLogger(log).Handler)
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		localcontext.Logger(r.Context()).Info("inside handler")
		http.Error(w, "nope", http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inner, done map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inner))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &done))

	assert.Equal(t, "inside handler", inner["msg"])
	assert.Equal(t, "req-123", inner["request_id"])
	assert.Equal(t, "socialear", inner["service"])

	assert.Equal(t, "request completed", done["msg"])
	assert.Equal(t, "WARN", done["level"])
	assert.EqualValues(t, 404, done["status"])
	assert.Equal(t, "/missing", done["path"])
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/results/{query}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/results/{query}", "200")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/results/ai", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/results/golang", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestPlaintextCSRF(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	tests := []struct {
		name      string
		plaintext bool
		// wantNoReferer reports whether the TLS-only Referer check rejected
		// the request before the token was looked at.
		wantNoReferer bool
	}{
		{name: "plain http skips referer check", plaintext: true, wantNoReferer: false},
		{name: "default enforces referer check", plaintext: false, wantNoReferer: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reason error
			protect := csrf.Protect(secret,
				csrf.Secure(false),
				csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					reason = csrf.FailureReason(r)
					http.Error(w, "forbidden", http.StatusForbidden)
				})),
			)

			var h http.Handler = protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("request without a token must not reach the handler")
			}))
			if tt.plaintext {
				h = PlaintextCSRF(h)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ui", nil))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			require.Error(t, reason)
			if tt.wantNoReferer {
				assert.ErrorIs(t, reason, csrf.ErrNoReferer)
			} else {
				assert.NotErrorIs(t, reason, csrf.ErrNoReferer)
			}
		})
	}
}
