package guild_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const handlerGuildID = "222222222222222222"

var _ = Describe("Guild Handler", func() {
	var (
		repo   *mockRepository
		result gate.Result
		router http.Handler
	)

	withAssertion := func(flags permission.Bitflag, guildID string) gate.Result {
		return gate.Result{
			State:  gate.Authenticated,
			Reason: gate.ReasonOK,
			Assertion: &assertion.Assertion{
				UserID:          "user-1",
				SelectedGuildID: guildID,
				Permissions:     flags,
			},
		}
	}

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockRepository()
		service := guild.NewService(repo, slogger)
		Expect(service.InstallBot(context.Background(), &guild.Guild{ID: handlerGuildID, Name: "Alpha"})).To(Succeed())

		handler := guild.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
		result = gate.Result{State: gate.Anonymous, Reason: gate.ReasonNoHeaders}

		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(gate.WithResult(req.Context(), result)))
			})
		})
		r.Get("/api/v1/guilds/{guildID}/permissions", handler.GetPermissions)
		r.With(gate.RequirePermission(permission.ManageRoles, "guildID")).
			Get("/api/v1/guilds/{guildID}/roles", handler.GetRoles)
		router = r
	})

	Describe("GET /permissions", func() {
		It("reports no permissions for anonymous callers", func() {
			w := get("/api/v1/guilds/" + handlerGuildID + "/permissions")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp guild.PermissionsResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Authenticated).To(BeFalse())
			Expect(resp.Permissions).To(Equal("0"))
			Expect(resp.Granted).To(BeEmpty())
		})

		It("treats rejected callers like anonymous ones", func() {
			result = gate.Result{State: gate.Rejected, Reason: gate.ReasonSignature}
			w := get("/api/v1/guilds/" + handlerGuildID + "/permissions")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"permissions":"0"`))
		})

		It("reports the asserted permissions for the asserted guild", func() {
			result = withAssertion(permission.ViewDashboard|permission.ManageRoles, handlerGuildID)
			w := get("/api/v1/guilds/" + handlerGuildID + "/permissions")

			var resp guild.PermissionsResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Authenticated).To(BeTrue())
			Expect(resp.Granted).To(ConsistOf("view_dashboard", "manage_roles"))
		})

		It("reports nothing for a guild the assertion was not issued for", func() {
			result = withAssertion(permission.All, "333333333333333333")
			w := get("/api/v1/guilds/" + handlerGuildID + "/permissions")
			Expect(w.Body.String()).To(ContainSubstring(`"permissions":"0"`))
		})

		It("rejects ids that are not snowflakes", func() {
			w := get("/api/v1/guilds/not-a-guild/permissions")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /roles", func() {
		It("lists roles for a caller holding manage_roles", func() {
			result = withAssertion(permission.ManageRoles, handlerGuildID)
			w := get("/api/v1/guilds/" + handlerGuildID + "/roles")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp guild.RolesResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Roles).To(HaveLen(len(guild.DefaultRoles)))
		})

		It("answers 403 without manage_roles", func() {
			result = withAssertion(permission.ViewDashboard, handlerGuildID)
			w := get("/api/v1/guilds/" + handlerGuildID + "/roles")
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(w.Body.String()).To(ContainSubstring("INSUFFICIENT_PERMISSIONS"))
		})

		It("answers 401 for anonymous callers", func() {
			w := get("/api/v1/guilds/" + handlerGuildID + "/roles")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers 404 for an unknown guild", func() {
			const unknown = "444444444444444444"
			result = withAssertion(permission.ManageRoles, unknown)
			w := get("/api/v1/guilds/" + unknown + "/roles")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
