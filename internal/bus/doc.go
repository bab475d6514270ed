// Package bus is the process-wide, typed, named publish/subscribe bus.
//
// A channel is addressed by name and carries one payload type. It exists
// while at least one publisher or subscriber is bound to it and is torn
// down when the last endpoint releases it, so repeated bind/reset cycles
// do not accumulate dead channels. Binding a name that is already live
// with a different payload type fails with ErrTypeConflict.
//
// Every subscriber owns a private bounded FIFO; a push fans out a copy to
// each subscriber at its own pace, dropping the oldest entry when a
// bounded queue is full. Receives block, with optional timeout or
// deadline, until data arrives or the last publisher leaves the channel.
package bus
