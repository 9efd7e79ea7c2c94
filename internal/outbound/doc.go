// Package outbound implements the per-client Outbound Mailbox.
//
// The Mailbox:
//   - Holds at most Capacity pending replies (default 10)
//   - Never blocks a producer: a full queue drops the reply and counts it
//   - Tags the next accepted reply with the number of drops before it, so the
//     delivery task can write a Dropped notice ahead of it
//   - Reports ErrDisconnected forever once closed
package outbound
