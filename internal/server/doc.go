// Package server accepts client connections and hands each one to a session.
//
// A Server listens on up to three addresses:
//   - TCP, always: newline-delimited JSON, one request or reply per line
//   - WebSocket, optional: one JSON object per text frame
//   - HTTP metrics, optional: Prometheus /metrics and a /health probe
//
// Listen binds everything up front so address errors surface before any
// goroutine starts. Serve runs until its context is cancelled or a listener
// fails, then waits for every session to finish.
package server
