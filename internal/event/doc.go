// Package event defines event types for decoupling components in Quorum.
// The client state store publishes state-change events so that UIs (the ask
// command's renderer, tests) can observe mutations without the store knowing
// about them, and the server publishes pipeline milestones for logging.
package event
