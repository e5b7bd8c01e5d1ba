package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/herald"
)

func TestAdmins(t *testing.T) {
	lookup := Admins("root")
	ctx := context.Background()

	mod, err := lookup(ctx, "root")
	require.NoError(t, err)
	assert.True(t, mod.IsAdmin)

	mod, err = lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", mod.ID)
	assert.False(t, mod.IsAdmin)
}

func TestOnly(t *testing.T) {
	lookup := Only([]string{"root"}, []string{"alice"})
	ctx := context.Background()

	mod, err := lookup(ctx, "root")
	require.NoError(t, err)
	assert.True(t, mod.IsAdmin)

	mod, err = lookup(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, mod.IsAdmin)

	_, err = lookup(ctx, "mallory")
	assert.ErrorIs(t, err, ErrNotModerator)
}

func TestResolveWithoutUser(t *testing.T) {
	_, err := resolve(context.Background(), Admins())
	assert.ErrorIs(t, err, herald.ErrAccessDenied)
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	assert.False(t, isAdmin(ctx))
	assert.False(t, isAdmin(herald.WithModerator(ctx, &herald.Moderator{ID: "alice"})))
	assert.True(t, isAdmin(herald.WithModerator(ctx, &herald.Moderator{ID: "root", IsAdmin: true})))
}
