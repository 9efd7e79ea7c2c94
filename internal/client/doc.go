// Package client implements the interactive command-line client.
//
// Commands are read one per line:
//
//	join GROUP
//	post GROUP MESSAGE...
//
// Replies from the server are printed as they arrive. When input ends the
// client half-closes the connection and keeps printing until the server has
// flushed everything queued for it.
package client
