/*
Package session implements the reading-session state machine.

A Machine owns exactly one in-progress reading and moves it through an explicit
set of statuses:

	unset -> mode_chosen -> collecting -> completing -> interpreted | failed

Every event is a single transition function executed under the machine lock, so
each transition is atomic with respect to the session fields. The only
suspension point is the interpreter call, which runs on its own goroutine while
the session stays inspectable through Snapshot. Each call is tagged with the
session generation; responses that arrive after a Reset or Discard are dropped.
*/
package session
