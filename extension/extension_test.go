package extension

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/herald"
	redisbus "github.com/xraph/herald/bus/redis"
	"github.com/xraph/herald/metrics"
	"github.com/xraph/herald/store/memory"
)

func TestEngineConfigOverrides(t *testing.T) {
	e := New(WithConfig(Config{
		RoleCacheTTL:    5 * time.Minute,
		DefaultPolicies: map[string]int64{"noteRateLimit": 10},
	}))

	cfg := e.engineConfig()
	assert.Equal(t, 5*time.Minute, cfg.RoleCacheTTL)
	assert.Equal(t, herald.DefaultConfig().AssignmentCacheTTL, cfg.AssignmentCacheTTL)
	assert.Equal(t, int64(10), cfg.DefaultPolicies["noteRateLimit"])
}

func TestStartStopWithoutForge(t *testing.T) {
	ctx := context.Background()
	e := New(
		WithStore(memory.New()),
		WithMetrics(metrics.New("herald_test")),
		WithDisableRoutes(),
	)
	eng, err := e.newEngine(nil)
	require.NoError(t, err)
	e.eng = eng

	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Health(ctx))

	set, err := e.Engine().ResolvePolicies(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, set)

	require.NoError(t, e.Stop(ctx))
}

func TestStopClosesBusSubscription(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := New(
		WithStore(memory.New()),
		WithBus(redisbus.New(client, redisbus.WithNodeID("node-a"))),
		WithDisableRoutes(),
	)
	eng, err := e.newEngine(nil)
	require.NoError(t, err)
	e.eng = eng

	require.NoError(t, e.Start(ctx))
	sub := e.sub
	require.NotNil(t, sub)

	require.NoError(t, e.Stop(ctx))
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription still running after Stop")
	}
	assert.Nil(t, e.sub)

	// A second Stop from the host framework is harmless.
	require.NoError(t, e.Stop(ctx))
}

func TestStartRequiresInit(t *testing.T) {
	assert.Error(t, New().Start(context.Background()))
	assert.NoError(t, New().Stop(context.Background()))
}
