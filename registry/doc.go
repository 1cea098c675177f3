// Package registry implements the capability registry: agent profile
// bookkeeping, capability indexing by name and category, topology snapshots,
// capability queries, and the background cleanup sweep that marks inactive
// agents offline.
//
// The registry is the single source of truth for agent state. The message
// router treats its routing table as a read-mostly cache refreshed
// periodically from the registry's topology; it is never updated
// transactionally with registry mutations.
package registry
