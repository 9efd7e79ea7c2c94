// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Session counts (active and total) and protocol errors
//   - Group count, joins, posts, and members pruned on disconnect
//   - Outbound mailbox enqueues and backpressure drops
package metrics
