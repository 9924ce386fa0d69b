package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/products/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before404 := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/products/{slug}", "404"))
	before200 := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/health", "200"))

	for _, path := range []string{"/products/a", "/products/b", "/health"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, before404+2, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/products/{slug}", "404")), 0.001)
	assert.InDelta(t, before200+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/health", "200")), 0.001)
}
