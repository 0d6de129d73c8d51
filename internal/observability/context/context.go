// Package obscontext carries request-scoped identifiers used by logging,
// tracing and auditing.
package obscontext

import (
	"context"
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	correlationIDKey contextKey = "correlation_id"
	actorIDKey       contextKey = "actor_id"
	actorRoleKey     contextKey = "actor_role"
)

// NewCorrelationID mints a sortable correlation identifier.
func NewCorrelationID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, strings.TrimSpace(correlationID))
}

func CorrelationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// WithActor records the acting user and role resolved by the fronting auth
// layer.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
	return context.WithValue(ctx, actorRoleKey, strings.TrimSpace(role))
}

func ActorFromContext(ctx context.Context) (actorID, role string) {
	if v, ok := ctx.Value(actorIDKey).(string); ok {
		actorID = v
	}
	if v, ok := ctx.Value(actorRoleKey).(string); ok {
		role = v
	}
	return actorID, role
}
