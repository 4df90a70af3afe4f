// Package cadence is a personal automation framework. It periodically
// ingests external data (pull request activity, meeting transcripts) into
// a note vault and dispatches registered workflows on cron schedules.
//
// The root package holds the shared value types:
//
//   - [Workflow] is the unit of automation, resolved by name at run time.
//   - [Registry] maps workflow names to implementations.
//   - [RunContext] and [Trigger] describe one execution attempt and its
//     provenance. Both are immutable once constructed.
//   - [State] is the JSON-serializable mapping each workflow owns.
//
// The runner package executes one run end to end with correct state
// semantics, the scheduler package owns the long-running daemon loop, and
// the state package persists per-workflow state durably and atomically.
package cadence
