package user_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/gate"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Handler", func() {
	var (
		repo    *mockRepository
		handler *user.Handler
	)

	authenticated := func(req *http.Request, a *assertion.Assertion) *http.Request {
		return req.WithContext(gate.WithResult(req.Context(), gate.Result{State: gate.Authenticated, Reason: gate.ReasonOK, Assertion: a}))
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockRepository()
		repo.users["user-1"] = &user.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"}
		repo.accounts["111111111111111111"] = &user.DiscordAccount{
			UserID:        "user-1",
			DiscordUserID: "111111111111111111",
			Username:      "ada",
			AccessToken:   "secret-access-token",
		}
		handler = user.NewHandler(&transport.BaseHandler{Logger: slogger}, user.NewService(repo, slogger))
	})

	It("returns the caller with their guild context", func() {
		a := &assertion.Assertion{
			UserID:          "user-1",
			SessionID:       "sess-1",
			SelectedGuildID: "222222222222222222",
			Permissions:     permission.ViewDashboard | permission.ManageRoles,
			ExpiresAt:       time.Now().Add(time.Hour),
		}
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), a))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).NotTo(ContainSubstring("secret-access-token"))

		var resp user.MeResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.User.Email).To(Equal("ada@example.com"))
		Expect(resp.SessionID).To(Equal("sess-1"))
		Expect(resp.Discord).NotTo(BeNil())
		Expect(resp.Discord.Username).To(Equal("ada"))
		Expect(resp.Guild).NotTo(BeNil())
		Expect(resp.Guild.Permissions).To(Equal((permission.ViewDashboard | permission.ManageRoles).String()))
		Expect(resp.Guild.Granted).To(ContainElements("view_dashboard", "manage_roles"))
	})

	It("omits the discord block for users without a linked account", func() {
		repo.users["user-2"] = &user.User{ID: "user-2", Email: "bob@example.com"}
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil),
			&assertion.Assertion{UserID: "user-2", SessionID: "sess-2"}))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp user.MeResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Discord).To(BeNil())
		Expect(resp.Guild).To(BeNil())
	})

	It("rejects anonymous callers", func() {
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("answers 404 for an unknown user", func() {
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil),
			&assertion.Assertion{UserID: "ghost"}))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("answers 500 when the store fails", func() {
		repo.failError = errors.New("db down")
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil),
			&assertion.Assertion{UserID: "user-1"}))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
