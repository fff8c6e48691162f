package gate

import (
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
)

// State is the verification outcome of one request.
type State int

const (
	Anonymous State = iota
	Rejected
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Rejected:
		return "rejected"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Reasons recorded alongside a State.
const (
	ReasonOK             = "ok"
	ReasonNoHeaders      = "no_headers"
	ReasonPartialHeaders = "partial_headers"
	ReasonSignature      = "signature"
	ReasonExpired        = "expired"
	ReasonMalformed      = "malformed"
)

// Result is what the gate concluded about a request.
type Result struct {
	State     State
	Reason    string
	Assertion *assertion.Assertion
	Err       error
}

func (r Result) Authenticated() bool {
	return r.State == Authenticated && r.Assertion != nil
}

type Config struct {
	Freshness assertion.Freshness
	Metrics   *observability.Metrics
	Now       func() time.Time
}

type Gate struct {
	secret    []byte
	freshness assertion.Freshness
	metrics   *observability.Metrics
	now       func() time.Time
}

func New(secret []byte, cfg Config) *Gate {
	if cfg.Freshness.MaxAge == 0 && cfg.Freshness.ClockSkew == 0 {
		cfg.Freshness = assertion.DefaultFreshness
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gate{
		secret:    secret,
		freshness: cfg.Freshness,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
}

// Verify classifies the assertion carried by h. It never returns partially
// trusted data: Assertion is set only for Authenticated results.
func (g *Gate) Verify(h http.Header) Result {
	payload := h.Get(assertion.HeaderPayload)
	signature := h.Get(assertion.HeaderSignature)

	switch {
	case payload == "" && signature == "":
		return Result{State: Anonymous, Reason: ReasonNoHeaders}
	case payload == "" || signature == "":
		return Result{State: Anonymous, Reason: ReasonPartialHeaders}
	}

	a, err := assertion.Decode(payload, signature, g.secret)
	if err != nil {
		if errors.Is(err, assertion.ErrMalformed) {
			return Result{State: Rejected, Reason: ReasonMalformed, Err: err}
		}
		return Result{State: Rejected, Reason: ReasonSignature, Err: err}
	}
	if err := a.CheckFreshness(g.now(), g.freshness); err != nil {
		return Result{State: Rejected, Reason: ReasonExpired, Err: err}
	}
	return Result{State: Authenticated, Reason: ReasonOK, Assertion: a}
}

// Middleware verifies every request and stores the Result in its context.
// It never rejects on its own; use RequireAuth or RequirePermission for that.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Verify(r.Header)
		g.metrics.ObserveGateDecision(res.State.String(), res.Reason)

		ctx := r.Context()
		lg := logger.From(ctx)
		switch res.State {
		case Rejected:
			if res.Reason == ReasonExpired {
				lg.Info("stale assertion rejected", "reason", res.Reason, "path", r.URL.Path)
			} else {
				lg.Warn("assertion failed verification", "reason", res.Reason, "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
			}
		case Authenticated:
			ctx = logger.With(ctx, "user_id", res.Assertion.UserID, "session_id", res.Assertion.SessionID)
		}

		next.ServeHTTP(w, r.WithContext(WithResult(ctx, res)))
	})
}
