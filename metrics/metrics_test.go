package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                         "/",
		"/":                                        "/",
		"/auth/login":                              "/auth",
		"/api/products":                            "/api/products",
		"/api/products/tshirt-1":                   "/api/products/:id",
		"/api/editor/sessions":                     "/api/editor/sessions",
		"/api/editor/sessions/session-01":          "/api/editor/sessions/:id",
		"/api/editor/sessions/session-01/text":     "/api/editor/sessions/:id/text",
		"/api/editor/sessions/session-01/elements": "/api/editor/sessions/:id/elements",
	}
	for in, want := range cases {
		assert.Equal(t, want, canonicalPath(in), in)
	}
}

func TestInstrumentHandler_CountsStatus(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/cart", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/cart", "418"))

	assert.Equal(t, before+1, after)
}

func TestRecordCheckout(t *testing.T) {
	before := testutil.ToFloat64(revenue)
	RecordCheckout("paid", 29.98)
	RecordCheckout("declined", 100)

	assert.InDelta(t, before+29.98, testutil.ToFloat64(revenue), 1e-9)
}

func TestHandler_Exposes(t *testing.T) {
	RecordDesignSaved("tshirt-1")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `apparel_studio_designs_saved_total{product="tshirt-1"}`))
}
