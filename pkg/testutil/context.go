package testutil

import (
	"context"
	"net/http"
	"time"

	"electiondesk/pkg/platform/middleware/actor"
	"electiondesk/pkg/requestcontext"
)

// AsActor sets the X-Actor-* headers the upstream gateway would forward.
func AsActor(req *http.Request, id, name, role string) *http.Request {
	req.Header.Set(actor.HeaderActorID, id)
	req.Header.Set(actor.HeaderActorName, name)
	req.Header.Set(actor.HeaderActorRole, role)
	return req
}

// WithActorContext injects an actor directly, bypassing the header middleware.
func WithActorContext(req *http.Request, id, name, role string) *http.Request {
	ctx := actor.WithActor(req.Context(), actor.Actor{ID: id, Name: name, Role: role})
	return req.WithContext(ctx)
}

// FixedClock returns a context whose request time is t.
func FixedClock(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}
