package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/policy"
)

func TestCacheCounters(t *testing.T) {
	c := New("herald_test")
	c.CacheHit("roles")
	c.CacheHit("roles")
	c.CacheMiss("assignments")

	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheHits.WithLabelValues("roles")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheMisses.WithLabelValues("assignments")), 0)
}

func TestResolutionOutcomes(t *testing.T) {
	ctx := context.Background()
	c := New("herald_test")

	require.NoError(t, c.OnPoliciesResolved(ctx, "i1", policy.Set{}, time.Millisecond, nil))
	require.NoError(t, c.OnPoliciesResolved(ctx, "i1", nil, time.Millisecond, errors.New("boom")))
	require.NoError(t, c.OnRoleAssigned(ctx, &assignment.Assignment{}))

	assert.InDelta(t, 1, testutil.ToFloat64(c.resolves.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.resolves.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.assignments.WithLabelValues("assign")), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New("herald_test")
	c.CacheHit("roles")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "herald_test_cache_hits_total"))
}
