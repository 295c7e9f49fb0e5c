// Package config loads run profiles.
//
// A profile names a selection of test cases (include and exclude globs,
// excluded tags) and the run settings that go with it:
//
//	name: quick
//	include: ["calls_*", "sequence_*"]
//	exclude_tags: [fatal, nonterminating]
//	parallel: 4
//	timeout: 2s
//
// YAML profiles are decoded strictly and then checked against an embedded
// CUE schema. CUE profiles are unified with the same schema directly:
//
//	profile: {
//		name:    "quick"
//		include: ["calls_*"]
//	}
//
// Profile implements registry.Selector, so a loaded profile can be passed to
// registry.WithSelector before cases are registered.
package config
