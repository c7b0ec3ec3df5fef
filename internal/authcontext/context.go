// Package authcontext carries the caller's authorization level through
// request contexts. Authentication itself is handled upstream; this service
// only needs to know whether the caller may see vehicle internal data.
package authcontext

import "context"

type contextKey struct{}

var viewInternalKey contextKey

// WithViewInternal marks the context as belonging to a caller allowed to
// see the vehicle internal block.
func WithViewInternal(ctx context.Context, allowed bool) context.Context {
	return context.WithValue(ctx, viewInternalKey, allowed)
}

// CanViewInternal reports whether the caller may see internal fields.
// Absent a marker the caller is treated as public.
func CanViewInternal(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	allowed, ok := ctx.Value(viewInternalKey).(bool)
	return ok && allowed
}
