// Package middleware provides HTTP middleware that identifies the moderator
// behind a herald API request.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/xraph/forge"

	"github.com/xraph/herald"
)

// ErrNotModerator is returned by a Lookup for a user who may not moderate.
var ErrNotModerator = errors.New("herald: user is not a moderator")

// Lookup maps an authenticated user to a moderator.
type Lookup func(ctx context.Context, userID string) (*herald.Moderator, error)

// Admins returns a Lookup that treats the given users as administrators and
// every other authenticated user as a plain moderator.
func Admins(adminIDs ...string) Lookup {
	return func(_ context.Context, userID string) (*herald.Moderator, error) {
		return &herald.Moderator{ID: userID, IsAdmin: slices.Contains(adminIDs, userID)}, nil
	}
}

// Only returns a Lookup that accepts the listed administrators and
// moderators and rejects everyone else.
func Only(adminIDs, moderatorIDs []string) Lookup {
	return func(_ context.Context, userID string) (*herald.Moderator, error) {
		switch {
		case slices.Contains(adminIDs, userID):
			return &herald.Moderator{ID: userID, IsAdmin: true}, nil
		case slices.Contains(moderatorIDs, userID):
			return &herald.Moderator{ID: userID}, nil
		default:
			return nil, ErrNotModerator
		}
	}
}

// Moderator resolves the acting moderator from the Forge user ID and stores
// it in the request context for the herald API. Requests without a user, or
// whose user the lookup rejects, get 403.
func Moderator(lookup Lookup) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			mod, err := resolve(ctx.Context(), lookup)
			if err != nil {
				return denyResponse(ctx)
			}
			req := ctx.Request()
			*req = *req.WithContext(herald.WithModerator(req.Context(), mod))
			return next(ctx)
		}
	}
}

// RequireAdmin rejects requests whose moderator is not an administrator.
// It must run after Moderator.
func RequireAdmin() forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			if !isAdmin(ctx.Context()) {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

func resolve(ctx context.Context, lookup Lookup) (*herald.Moderator, error) {
	userID := forge.UserIDFromContext(ctx)
	if userID == "" {
		return nil, herald.ErrAccessDenied
	}
	mod, err := lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, ErrNotModerator
	}
	return mod, nil
}

func isAdmin(ctx context.Context) bool {
	mod := herald.ModeratorFromContext(ctx)
	return mod != nil && mod.IsAdmin
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
