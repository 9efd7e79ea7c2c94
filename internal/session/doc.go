// Package session drives one client connection.
//
// A Session owns the client's outbound mailbox and the table of groups the
// client has joined. It reads requests in order on the calling goroutine and
// runs the mailbox delivery task on a second one. Either side failing ends
// both: a decode error or EOF closes the mailbox, and a failed write cancels
// the reader by closing the connection.
//
// Transports only need to provide a Conn. LineConn adapts any net.Conn to the
// newline-delimited JSON protocol.
package session
