package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrRingOverflow indicates bytes were rejected because the ring is full.
	ErrRingOverflow = errors.New("ring overflow")
	// ErrRingUnderflow indicates a read from an empty ring.
	// It is the normal "no data yet" condition.
	ErrRingUnderflow = errors.New("ring underflow")
	// ErrTransportTimeout indicates the modem didn't produce the expected
	// bytes in time, or the echo budget was exhausted.
	ErrTransportTimeout = errors.New("transport timeout")
	// ErrTruncated indicates the reply didn't fit into the buffer.
	ErrTruncated = errors.New("reply truncated")
	// ErrProtocolDesync indicates a final result arrived before the expected
	// number of line terminators.
	ErrProtocolDesync = errors.New("protocol desync")
)

// ReplyError wraps an error line reported by the modem.
type ReplyError struct {
	Line string
}

// Error implements error.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("modem error %q", e.Line)
}
