// Package notifications delivers collection run events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Collection runs can take hours, so the notifier covers the milestones
// an operator cares about while away from the terminal: run start,
// completion with counts, and fatal errors.
//
// All collection code depends only on the simple Service interface, so
// alternative transports slot in without touching the runners.
package notifications
