package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservability(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Observability Suite")
}

var _ = Describe("Metrics", func() {
	It("is safe to use when nil", func() {
		var m *observability.Metrics
		m.ObserveGateDecision("anonymous", "no_headers")
		m.ObserveReconcile("failed")
		m.ObserveGuildFetch("ok", time.Second)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("counts gate decisions by state and reason", func() {
		m := observability.NewMetrics()
		m.ObserveGateDecision("rejected", "signature")
		m.ObserveGateDecision("rejected", "signature")
		m.ObserveGateDecision("authenticated", "ok")

		count, err := testutil.GatherAndCount(m.Gatherer(), "dashboard_gate_decisions_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))

		expected := `
# HELP dashboard_gate_decisions_total Assertion verification outcomes by state and reason.
# TYPE dashboard_gate_decisions_total counter
dashboard_gate_decisions_total{reason="ok",state="authenticated"} 1
dashboard_gate_decisions_total{reason="signature",state="rejected"} 2
`
		Expect(testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "dashboard_gate_decisions_total")).To(Succeed())
	})

	It("records requests by route pattern", func() {
		m := observability.NewMetrics()
		r := chi.NewRouter()
		r.Use(m.Middleware)
		r.Get("/guilds/{guildID}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		r.Handle("/metrics", m.Handler())

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/guilds/123", nil))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).To(ContainSubstring(`dashboard_http_requests_total{code="418",route="/guilds/{guildID}"} 1`))
	})
})
