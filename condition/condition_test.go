package condition

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func metrics() Metrics {
	return Metrics{
		CreatedAt:      now.Add(-48 * time.Hour),
		FollowersCount: 1500,
		FollowingCount: 20,
		NotesCount:     300,
	}
}

func TestEvaluateLeaves(t *testing.T) {
	m := metrics()
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"younger than 3 days", CreatedLessThan(3 * 86400), true},
		{"younger than 1 day", CreatedLessThan(86400), false},
		{"older than 1 day", CreatedMoreThan(86400), true},
		{"older than 3 days", CreatedMoreThan(3 * 86400), false},
		{"followers >= 1000", FollowersMoreThanOrEq(1000), true},
		{"followers >= 1500 boundary", FollowersMoreThanOrEq(1500), true},
		{"followers <= 1499", FollowersLessThanOrEq(1499), false},
		{"following <= 20 boundary", FollowingLessThanOrEq(20), true},
		{"following >= 21", FollowingMoreThanOrEq(21), false},
		{"notes <= 300", NotesLessThanOrEq(300), true},
		{"notes >= 301", NotesMoreThanOrEq(301), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(m, tt.node, now))
		})
	}
}

func TestEvaluateEmptyCombinators(t *testing.T) {
	m := metrics()
	assert.True(t, Evaluate(m, And(), now), "and([]) is vacuously true")
	assert.False(t, Evaluate(m, Or(), now), "or([]) is vacuously false")
	assert.True(t, Evaluate(m, Node{Kind: KindAnd}, now), "nil values behave like an empty list")
}

func TestEvaluateDoubleNegation(t *testing.T) {
	m := metrics()
	nodes := []Node{
		FollowersMoreThanOrEq(1000),
		FollowersMoreThanOrEq(5000),
		And(),
		Or(),
		Node{Kind: "somethingNew"},
		Node{Kind: KindNot},
		Or(NotesLessThanOrEq(1), CreatedLessThan(10)),
	}
	for _, n := range nodes {
		assert.Equal(t, Evaluate(m, n, now), Evaluate(m, Not(Not(n)), now), "kind %q", n.Kind)
	}
}

func TestEvaluateUnknownAndMalformedNodes(t *testing.T) {
	m := metrics()

	assert.False(t, Evaluate(m, Node{Kind: "instanceIsSilenced"}, now))
	assert.False(t, Evaluate(m, Node{Kind: KindNot}, now), "not without operand fails closed")

	// A bad sibling must not stop the others from evaluating.
	tree := Or(Node{Kind: "instanceIsSilenced"}, Node{Kind: KindNot}, FollowersMoreThanOrEq(1000))
	assert.True(t, Evaluate(m, tree, now))

	tree = And(FollowersMoreThanOrEq(1000), Node{Kind: "instanceIsSilenced"})
	assert.False(t, Evaluate(m, tree, now))
}

func TestEvaluateUnknownCreationTime(t *testing.T) {
	m := metrics()
	m.CreatedAt = time.Time{}

	assert.False(t, Evaluate(m, CreatedLessThan(86400), now))
	assert.False(t, Evaluate(m, CreatedMoreThan(86400), now))
	// The fault stays local to the created node.
	assert.True(t, Evaluate(m, Or(CreatedMoreThan(1), FollowersMoreThanOrEq(1)), now))
}

func TestJSONRoundTrip(t *testing.T) {
	tree := And(
		Or(FollowersMoreThanOrEq(1000), NotesMoreThanOrEq(50)),
		Not(CreatedLessThan(7*86400)),
		Or(),
	)

	raw, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, tree, decoded)
}

func TestJSONWireFormat(t *testing.T) {
	raw := `{"type":"and","id":"a","values":[
		{"type":"followersMoreThanOrEq","id":"b","value":1000},
		{"type":"not","id":"c","value":{"type":"createdLessThan","id":"d","sec":86400}},
		{"type":"isFromTheFuture","id":"e","value":"x"}
	]}`

	var n Node
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	require.Len(t, n.Values, 3)
	assert.Equal(t, int64(1000), n.Values[0].Threshold)
	require.NotNil(t, n.Values[1].Operand)
	assert.Equal(t, int64(86400), n.Values[1].Operand.Sec)
	assert.Equal(t, Kind("isFromTheFuture"), n.Values[2].Kind)

	// The unknown child makes the conjunction false, not an error.
	assert.False(t, Evaluate(metrics(), n, now))
}

func TestJSONMalformedChildStaysLocal(t *testing.T) {
	raw := `{"type":"or","values":[
		{"type":"followersMoreThanOrEq","value":"oops"},
		{"type":"not","value":5},
		{"type":"followersMoreThanOrEq","value":1000}
	]}`

	var n Node
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	require.Len(t, n.Values, 3)
	assert.True(t, n.Values[0].Malformed())
	assert.Equal(t, KindFollowersMoreThanOrEq, n.Values[0].Kind)
	assert.True(t, n.Values[1].Malformed())
	assert.False(t, n.Values[2].Malformed())

	m := metrics()
	assert.False(t, Evaluate(m, n.Values[0], now))
	assert.False(t, Evaluate(m, n.Values[1], now))
	assert.True(t, Evaluate(m, n, now), "the healthy sibling still matches")
	assert.False(t, Evaluate(m, And(n.Values[0], FollowersMoreThanOrEq(1)), now))

	require.ErrorIs(t, Validate(n), ErrInvalid)

	// The stored form survives a rewrite untouched.
	out, err := json.Marshal(n.Values[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"followersMoreThanOrEq","value":"oops"}`, string(out))
	assert.True(t, n.Clone().Values[1].Malformed())
}

func TestJSONRejectsInvalidSyntax(t *testing.T) {
	var n Node
	assert.Error(t, json.Unmarshal([]byte(`{"type":`), &n))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(And(Not(FollowersMoreThanOrEq(1)), Or())))
	assert.ErrorIs(t, Validate(Node{Kind: "bogus"}), ErrInvalid)
	assert.ErrorIs(t, Validate(Node{Kind: KindNot}), ErrInvalid)
	assert.ErrorIs(t, Validate(And(CreatedLessThan(-1))), ErrInvalid)

	deep := FollowersMoreThanOrEq(1)
	for range MaxDepth {
		deep = Not(deep)
	}
	assert.ErrorIs(t, Validate(deep), ErrInvalid)
}
