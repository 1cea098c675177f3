// Package coordinator implements the workflow coordinator: a supervisor
// that scores agents against message content, a handoff state machine
// driving control between agent nodes, and bounded execution under both a
// maximum iteration count and a wall-clock timeout.
//
// The coordinator consults the registry for available agents and relays
// every handoff as a task_delegate message through the router, so a
// transport layer observing router traffic sees the full delegation chain.
package coordinator
