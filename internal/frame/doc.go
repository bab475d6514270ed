// Package frame implements the fixed-length packet buffer used on
// sensor/actuator byte links.
//
// A frame is a fixed-capacity buffer bracketed by sentinel bytes:
//
//	[0]   0xFF head byte
//	[1..C-3] payload, accessed through bounded typed accessors
//	[C-2] check byte, assigned by the caller
//	[C-1] 0x0D tail byte
//
// The check byte is reserved in the layout but no checksum algorithm is
// defined here; callers that want one assign it via SetCheckByte and
// verify it themselves.
package frame
