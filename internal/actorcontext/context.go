package actorcontext

import (
	"context"

	"github.com/smallbiznis/donare/internal/authorization"
)

// ActorContextKey is the request context key for the resolved identity.
type ActorContextKey struct{}

// WithSubject stores the subject resolved by the identity middleware.
func WithSubject(ctx context.Context, subject authorization.Subject) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, subject)
}

// SubjectFromContext returns the subject stored in ctx. Requests without an
// identity resolve to the anonymous visitor.
func SubjectFromContext(ctx context.Context) (authorization.Subject, bool) {
	if ctx == nil {
		return authorization.Anonymous(), false
	}
	subject, ok := ctx.Value(ActorContextKey{}).(authorization.Subject)
	if !ok {
		return authorization.Anonymous(), false
	}
	return subject, true
}
