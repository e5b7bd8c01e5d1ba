// Package herald resolves per-instance policies for a federated server.
//
// Administrators define roles, each a bundle of policy overrides. A role
// reaches an instance either by explicit assignment, optionally expiring,
// or by a condition over the instance's counters. The engine folds the
// overrides of every applicable role over the system defaults and caches
// what it reads from the store.
//
//	eng, err := herald.NewEngine(
//	    herald.WithStore(memory.New()),
//	    herald.WithInstanceProvider(instances),
//	)
//	set, err := eng.ResolvePolicies(ctx, "inst_123")
//	limit := set[policy.NoteRateLimit]
package herald
