// Package actor carries the authenticated subject of a request through context.
package actor

import "context"

type ctxKey string

const subjectKey ctxKey = "carepulse.actor"

// System is reported when no subject is attached to the context.
const System = "system"

// WithSubject stores the acting subject (admin id, user id) in context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext extracts the subject if present.
func SubjectFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(subjectKey)
	if val == nil {
		return "", false
	}
	subject, ok := val.(string)
	return subject, ok && subject != ""
}

// Subject returns the subject in ctx or System.
func Subject(ctx context.Context) string {
	if subject, ok := SubjectFromContext(ctx); ok {
		return subject
	}
	return System
}
