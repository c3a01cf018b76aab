// Package relay provides the building blocks of the terminal relay engine:
// UTF-8 stream reassembly across read boundaries, display-safe escaping for
// a console with a bounded renderable code-point range, carriage-return line
// framing with reserved command interception, the unbounded outbound message
// queue, the guarded display and traffic-log sinks, and the goroutine task
// manager used by the session layer.
package relay
