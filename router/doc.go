// Package router implements the message router: envelope validation, type
// dispatch, four strict-priority FIFO queues with a background processor,
// bounded retries, broadcast fan-out, agent-selection algorithms, and a
// routing table refreshed periodically from the registry topology.
//
// Queue ordering is strict priority with FIFO within each lane. There is no
// anti-starvation mechanism: a sustained stream of urgent or high traffic
// can indefinitely delay low traffic. This is a documented trade-off of the
// design, not an oversight.
package router
