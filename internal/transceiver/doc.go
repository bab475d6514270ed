// Package transceiver drives a byte-stream transport to exchange
// fixed-length frames.
//
// The receive path tolerates arbitrary fragmentation and coalescing: a
// carry-over buffer of twice the frame capacity accumulates partial reads
// and every window offset is scanned for valid sentinels until a frame
// resynchronizes. The send path is either synchronous or handed to a
// background worker draining an outbound queue under a selectable
// backpressure policy. Transport faults are absorbed: the device is
// closed and reopened best-effort and the call reports failure.
package transceiver
