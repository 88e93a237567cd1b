// Package search turns raw query input into committed searches.
//
// # Overview
//
// A Controller sits between whatever produces keystrokes (the explore shell,
// the web API) and the result aggregator. Typing is debounced: a commit is
// scheduled only once the trimmed text reaches the minimum length, and every
// new keystroke replaces the pending commit. An explicit submit skips both the
// debounce and the minimum length.
//
// # Committing
//
// Committing a query does two things, in order:
//
//   - the trimmed term is recorded in the recent searches store
//   - the committer (normally a results.Aggregator) is reset to the term
//
// Failing to record a recent term is logged and never blocks the search.
//
// # Scheduling
//
// Timers are created through the Scheduler interface so tests can drive the
// debounce with a manual clock:
//
//	ctrl := search.NewController(agg, store, search.Options{
//		Debounce:       300 * time.Millisecond,
//		MinQueryLength: 2,
//	})
//	ctrl.Input("du")
//	ctrl.Input("dune") // replaces the pending commit for "du"
//
// In-flight fetches are never cancelled by the controller. Responses for
// superseded queries are dropped by the aggregator.
package search
