package gate

import (
	"context"

	"github.com/frahmantamala/guild-dashboard/internal/assertion"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

type ctxKey string

const resultKey ctxKey = "gateResult"

func WithResult(ctx context.Context, res Result) context.Context {
	return context.WithValue(ctx, resultKey, res)
}

// FromContext returns the gate result, or an Anonymous result when the gate
// did not run.
func FromContext(ctx context.Context) Result {
	if res, ok := ctx.Value(resultKey).(Result); ok {
		return res
	}
	return Result{State: Anonymous, Reason: ReasonNoHeaders}
}

// AssertionFromContext returns the verified assertion of an authenticated request.
func AssertionFromContext(ctx context.Context) (*assertion.Assertion, bool) {
	res := FromContext(ctx)
	if !res.Authenticated() {
		return nil, false
	}
	return res.Assertion, true
}

// EffectivePermissions is the bitflag the caller holds in guildID. Anonymous
// and rejected callers hold nothing, and an assertion only speaks for the
// guild it was issued for.
func EffectivePermissions(ctx context.Context, guildID string) permission.Bitflag {
	a, ok := AssertionFromContext(ctx)
	if !ok || a.SelectedGuildID == "" || a.SelectedGuildID != guildID {
		return permission.None
	}
	return a.Permissions
}
