// Package session implements the relay session between a human operator and
// a remote line-oriented device over TCP.
//
// A Session owns a single outbound connection to the device, a loopback
// side-channel listener carrying operator keystroke lines, and three worker
// goroutines: a remote reader (device output to display and traffic log), a
// remote writer (queued operator commands to the device), and an input
// worker (side-channel lines to echo and outbound queue). The first worker
// to fail or finish ends the whole session; teardown is cooperative via
// connection and listener closure.
package session
