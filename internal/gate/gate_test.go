package gate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gate Suite")
}

var secret = []byte("gate-test-secret-0123456789abcdef")

func signed(a assertion.Assertion, key []byte) http.Header {
	payload, signature, err := assertion.Encode(a, key)
	Expect(err).NotTo(HaveOccurred())
	h := http.Header{}
	h.Set(assertion.HeaderPayload, payload)
	h.Set(assertion.HeaderSignature, signature)
	return h
}

func errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
	return body.Error.Code
}

var _ = Describe("Gate", func() {
	var (
		now     time.Time
		g       *gate.Gate
		metrics *observability.Metrics
		fresh   assertion.Assertion
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		metrics = observability.NewMetrics()
		g = gate.New(secret, gate.Config{Metrics: metrics, Now: func() time.Time { return now }})
		fresh = assertion.Assertion{
			UserID:          "u1",
			Email:           "u1@example.com",
			SelectedGuildID: "222222222222222222",
			Permissions:     permission.ViewDashboard | permission.ManageRoles,
			SessionID:       "s1",
			ExpiresAt:       now.Add(time.Hour),
			Timestamp:       now.Add(-time.Second).UnixMilli(),
		}
	})

	Describe("Verify", func() {
		It("treats a request without headers as anonymous", func() {
			res := g.Verify(http.Header{})
			Expect(res.State).To(Equal(gate.Anonymous))
			Expect(res.Reason).To(Equal(gate.ReasonNoHeaders))
		})

		It("treats a single header as anonymous", func() {
			h := signed(fresh, secret)
			h.Del(assertion.HeaderSignature)
			res := g.Verify(h)
			Expect(res.State).To(Equal(gate.Anonymous))
			Expect(res.Reason).To(Equal(gate.ReasonPartialHeaders))
			Expect(res.Assertion).To(BeNil())
		})

		It("authenticates a fresh, correctly signed assertion", func() {
			res := g.Verify(signed(fresh, secret))
			Expect(res.State).To(Equal(gate.Authenticated))
			Expect(res.Assertion.UserID).To(Equal("u1"))
		})

		It("rejects a foreign signature", func() {
			res := g.Verify(signed(fresh, []byte("another-secret-entirely-0123456789")))
			Expect(res.State).To(Equal(gate.Rejected))
			Expect(res.Reason).To(Equal(gate.ReasonSignature))
			Expect(res.Assertion).To(BeNil())
		})

		It("rejects a past session expiry", func() {
			fresh.ExpiresAt = now.Add(-time.Second)
			res := g.Verify(signed(fresh, secret))
			Expect(res.State).To(Equal(gate.Rejected))
			Expect(res.Reason).To(Equal(gate.ReasonExpired))
		})

		It("rejects an issuance timestamp outside the window", func() {
			fresh.Timestamp = now.Add(-10 * time.Minute).UnixMilli()
			Expect(g.Verify(signed(fresh, secret)).Reason).To(Equal(gate.ReasonExpired))

			fresh.Timestamp = now.Add(2 * time.Minute).UnixMilli()
			Expect(g.Verify(signed(fresh, secret)).Reason).To(Equal(gate.ReasonExpired))
		})
	})

	Describe("middleware chain", func() {
		var router chi.Router

		BeforeEach(func() {
			router = chi.NewRouter()
			router.Use(g.Middleware)
			router.Get("/open", func(w http.ResponseWriter, r *http.Request) {
				res := gate.FromContext(r.Context())
				w.Header().Set("X-State", res.State.String())
				w.Header().Set("X-Bits", gate.EffectivePermissions(r.Context(), "222222222222222222").String())
			})
			router.With(gate.RequireAuth).Get("/private", func(w http.ResponseWriter, r *http.Request) {
				a, _ := gate.AssertionFromContext(r.Context())
				_, _ = w.Write([]byte(a.UserID))
			})
			router.With(gate.RequirePermission(permission.ManageRoles, "guildID")).
				Get("/guilds/{guildID}/roles", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})
			router.With(gate.RequirePermission(permission.ManageSettings, "guildID")).
				Get("/guilds/{guildID}/settings", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})
		})

		serve := func(path string, h http.Header) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			for k, v := range h {
				req.Header[k] = v
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		It("lets anonymous callers through open routes with zero privileges", func() {
			rec := serve("/open", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-State")).To(Equal("anonymous"))
			Expect(rec.Header().Get("X-Bits")).To(Equal("0"))
		})

		It("downgrades rejected callers on open routes", func() {
			rec := serve("/open", signed(fresh, []byte("wrong-secret-wrong-secret-wrong!!")))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-State")).To(Equal("rejected"))
			Expect(rec.Header().Get("X-Bits")).To(Equal("0"))
		})

		It("exposes the asserted bits on open routes", func() {
			rec := serve("/open", signed(fresh, secret))
			Expect(rec.Header().Get("X-Bits")).To(Equal((permission.ViewDashboard | permission.ManageRoles).String()))
		})

		It("answers 401 for anonymous callers on protected routes", func() {
			rec := serve("/private", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec)).To(Equal("UNAUTHENTICATED"))
		})

		It("answers 401, never 500, for a tampered assertion", func() {
			h := signed(fresh, secret)
			h.Set(assertion.HeaderSignature, strings.Repeat("0", 64))
			rec := serve("/private", h)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec)).To(Equal("INVALID_ASSERTION"))
		})

		It("answers 401 for an expired assertion", func() {
			fresh.ExpiresAt = now.Add(-time.Minute)
			rec := serve("/private", signed(fresh, secret))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec)).To(Equal("ASSERTION_EXPIRED"))
		})

		It("serves authenticated callers", func() {
			rec := serve("/private", signed(fresh, secret))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("u1"))
		})

		It("allows a caller holding the required bit in the asserted guild", func() {
			rec := serve("/guilds/222222222222222222/roles", signed(fresh, secret))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("forbids a caller missing the required bit", func() {
			rec := serve("/guilds/222222222222222222/settings", signed(fresh, secret))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(rec)).To(Equal("INSUFFICIENT_PERMISSIONS"))
		})

		It("forbids using an assertion against another guild", func() {
			rec := serve("/guilds/333333333333333333/roles", signed(fresh, secret))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(rec)).To(Equal("GUILD_MISMATCH"))
		})

		It("records every decision", func() {
			serve("/open", nil)
			serve("/open", signed(fresh, secret))
			serve("/open", signed(fresh, []byte("wrong-secret-wrong-secret-wrong!!")))

			expected := `
# HELP dashboard_gate_decisions_total Assertion verification outcomes by state and reason.
# TYPE dashboard_gate_decisions_total counter
dashboard_gate_decisions_total{reason="no_headers",state="anonymous"} 1
dashboard_gate_decisions_total{reason="ok",state="authenticated"} 1
dashboard_gate_decisions_total{reason="signature",state="rejected"} 1
`
			Expect(testutil.GatherAndCompare(metrics.Gatherer(), strings.NewReader(expected), "dashboard_gate_decisions_total")).To(Succeed())
		})
	})
})
