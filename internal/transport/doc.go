// Package transport abstracts the physical byte-stream devices a link
// transceiver drives: UART serial ports, TCP byte streams for bench and
// simulator setups, and an in-memory pipe for tests.
//
// Read and Write follow the stream device convention: Read returning
// (0, nil) means no data arrived within the device timeout, and any error
// means the device needs a close/reopen cycle. Transports never block
// indefinitely; the caller polls.
package transport
