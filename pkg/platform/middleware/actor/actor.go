// Package actor extracts the calling election official from request headers.
// Identity is asserted by the upstream gateway; this service trusts the headers.
package actor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/httputil"
	"electiondesk/pkg/requestcontext"
)

const (
	HeaderActorID      = "X-Actor-ID"
	HeaderActorName    = "X-Actor-Name"
	HeaderActorContact = "X-Actor-Contact"
	HeaderActorRole    = "X-Actor-Role"
)

// Actor is the raw caller identity as presented in headers. Role is not
// validated here; domain services decide what each role may do.
type Actor struct {
	ID      string
	Name    string
	Contact string
	Role    string
}

type contextKeyActor struct{}

// ContextKeyActor is exported for tests that build contexts directly.
var ContextKeyActor = contextKeyActor{}

// FromContext returns the actor set by RequireActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ContextKeyActor).(Actor)
	return a, ok
}

// WithActor injects an actor into ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, a)
}

// FromRequest reads the actor headers without validating them.
func FromRequest(r *http.Request) Actor {
	return Actor{
		ID:      strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name:    strings.TrimSpace(r.Header.Get(HeaderActorName)),
		Contact: strings.TrimSpace(r.Header.Get(HeaderActorContact)),
		Role:    strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
	}
}

// RequireActor rejects requests without an actor ID or role.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := FromRequest(r)
			if a.ID == "" || a.Role == "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "request without actor identity",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "actor id and role headers are required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
		})
	}
}
