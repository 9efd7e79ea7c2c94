// Package group implements chat groups and the group Manager.
//
// Both are actors: each Group and the Manager own their state inside a single
// goroutine that consumes commands in arrival order. Membership changes and
// fan-out on the same group are therefore serialized without locks, while
// different groups proceed independently.
//
// A Group does not own its members. It reaches each one through a Member
// handle and drops the handle the first time Enqueue reports
// outbound.ErrDisconnected. There is no explicit leave; eviction happens on
// the next post after a client disconnects.
package group
