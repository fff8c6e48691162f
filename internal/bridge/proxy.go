package bridge

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/auth"
	"github.com/frahmantamala/guild-dashboard/internal/core/common/validation"
	"github.com/frahmantamala/guild-dashboard/internal/transport"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
)

// HeaderGuildID names the guild the browser is acting in.
const HeaderGuildID = "X-Guild-ID"

type ctxKey string

const signedHeadersKey ctxKey = "signedHeaders"

// Proxy forwards browser API calls to the backend, replacing whatever
// identity the browser claimed with one signed from its session.
type Proxy struct {
	bridge   *Bridge
	sessions auth.SessionStore
	proxy    *httputil.ReverseProxy
}

func NewProxy(target *url.URL, sessions auth.SessionStore, b *Bridge) *Proxy {
	p := &Proxy{bridge: b, sessions: sessions}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			StripHeaders(pr.Out.Header)
			pr.Out.Header.Del("Cookie")
			if signed, ok := pr.In.Context().Value(signedHeadersKey).(http.Header); ok {
				for _, name := range []string{assertion.HeaderPayload, assertion.HeaderSignature} {
					if v := signed.Get(name); v != "" {
						pr.Out.Header.Set(name, v)
					}
				}
			}
			if traceID := internal.TraceIDFromContext(pr.In.Context()); traceID != "" {
				pr.Out.Header.Set("X-Trace-ID", traceID)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			transport.WriteAppError(w, internal.NewExternalError("Backend unavailable", err), logger.From(r.Context()))
		},
	}
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := logger.From(ctx)

	sess, err := p.sessions.GetSession(r)
	if err != nil {
		transport.WriteAppError(w, internal.NewInternalError("could not load session", err), lg)
		return
	}

	guildID := TargetGuild(r)
	a, err := p.bridge.BuildAssertion(ctx, sess, guildID)
	if err != nil {
		transport.WriteAppError(w, internal.NewInternalError("could not build assertion", err), lg)
		return
	}

	signed := http.Header{}
	if err := p.bridge.AttachHeaders(a, signed); err != nil {
		transport.WriteAppError(w, internal.NewInternalError("could not sign assertion", err), lg)
		return
	}
	p.proxy.ServeHTTP(w, r.WithContext(context.WithValue(ctx, signedHeadersKey, signed)))
}

// TargetGuild returns the guild named by the X-Guild-ID header or the
// guildId query parameter. Values that are not snowflakes are ignored.
func TargetGuild(r *http.Request) string {
	guildID := r.Header.Get(HeaderGuildID)
	if guildID == "" {
		guildID = r.URL.Query().Get("guildId")
	}
	if !validation.IsSnowflake(guildID) {
		return ""
	}
	return guildID
}
