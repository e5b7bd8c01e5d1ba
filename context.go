package herald

import "context"

type contextKey int

const ctxKeyModerator contextKey = iota

// WithModerator returns a context carrying the acting moderator.
func WithModerator(ctx context.Context, m *Moderator) context.Context {
	return context.WithValue(ctx, ctxKeyModerator, m)
}

// ModeratorFromContext returns the moderator stored by WithModerator, or nil.
func ModeratorFromContext(ctx context.Context) *Moderator {
	m, ok := ctx.Value(ctxKeyModerator).(*Moderator)
	if !ok {
		return nil
	}
	return m
}
