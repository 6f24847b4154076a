package comm

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout bounds a single send or read when the caller's context has
// no deadline.
const DefaultTimeout = 5 * time.Second

var crlf = []byte{CR, LF}

// Channel performs line oriented exchanges over a pair of rings.
//
// A Channel is not safe for concurrent use: each call is a self-contained
// exchange and callers must serialize them.
type Channel struct {
	Inbound  *Ring
	Outbound *Ring

	// Timeout bounds each call when ctx has no deadline. Zero means unbounded.
	Timeout time.Duration
	// EchoLimit bounds the bytes discarded while waiting for an echo.
	// Zero means unbounded.
	EchoLimit int

	framer Framer
}

// NewChannel creates a Channel on the rings.
func NewChannel(inbound, outbound *Ring) *Channel {
	return &Channel{
		Inbound:  inbound,
		Outbound: outbound,
		Timeout:  DefaultTimeout,
	}
}

// State gets the state of the current or last exchange.
func (c *Channel) State() FrameState {
	return c.framer.State()
}

// SendCommand enqueues text terminated by CR LF and discards the modem's
// echo. It returns the number of bytes enqueued.
func (c *Channel) SendCommand(ctx context.Context, text string) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	line := make([]byte, 0, len(text)+len(crlf))
	line = append(append(line, text...), crlf...)
	n, err := c.Outbound.WriteContext(ctx, line)
	if err != nil {
		c.framer.Reset()
		return n, c.mapErr(err)
	}
	glog.V(2).Infof("SEND %q", text)

	c.framer.BeginEcho()
	discarded := 0
	for c.framer.State() != StateDone {
		if c.EchoLimit > 0 && discarded >= c.EchoLimit {
			c.framer.Reset()
			return n, fmt.Errorf("%w: echo of %q exceeded %d bytes", ErrTransportTimeout, text, c.EchoLimit)
		}
		b, err := c.next(ctx)
		if err != nil {
			c.framer.Reset()
			return n, err
		}
		discarded++
		c.framer.Feed(b)
	}
	glog.V(4).Infof("ECHO %q synced after %d bytes", text, discarded)
	return n, nil
}

// SendRaw enqueues p as is, without terminator and without echo sync.
func (c *Channel) SendRaw(ctx context.Context, p []byte) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	n, err := c.Outbound.WriteContext(ctx, p)
	if err != nil {
		return n, c.mapErr(err)
	}
	glog.V(2).Infof("SEND raw % x", p)
	return n, nil
}

// ReadResponse reads the reply into p until the number of line feeds
// required by mode has been observed. Bytes queued after the last expected
// line feed are left in the ring, and p beyond the returned count is
// untouched.
//
// It returns ErrTruncated when p fills up first, ErrProtocolDesync when a
// final result line arrives early, and *ReplyError when the reply ends with
// an error line.
func (c *Channel) ReadResponse(ctx context.Context, p []byte, mode Mode) (n int, err error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.framer.BeginReply(mode.Terminators())
	defer func() {
		glog.V(2).Infof("RECV[%s] %q err=%v", mode, p[:n], err)
	}()
	lineStart := 0
	for c.framer.State() != StateDone {
		if n >= len(p) {
			c.framer.Reset()
			return n, ErrTruncated
		}
		b, err := c.next(ctx)
		if err != nil {
			c.framer.Reset()
			return n, err
		}
		p[n] = b
		n++
		if c.framer.Feed(b) == StateDone {
			break
		}
		if b == LF {
			line := p[lineStart:n]
			lineStart = n
			if isFinal(line) {
				c.framer.Reset()
				return n, fmt.Errorf("%w: %q after %d of %d terminators",
					ErrProtocolDesync, trimLine(line), c.framer.Seen(), mode.Terminators())
			}
		}
	}
	if line := trimLine(p[lineStart:n]); isError(line) {
		return n, &ReplyError{Line: string(line)}
	}
	return n, nil
}

// Exchange sends a command and reads its reply.
func (c *Channel) Exchange(ctx context.Context, text string, p []byte, mode Mode) (int, error) {
	if _, err := c.SendCommand(ctx, text); err != nil {
		return 0, err
	}
	return c.ReadResponse(ctx, p, mode)
}

func (c *Channel) next(ctx context.Context) (byte, error) {
	for {
		if b, ok := c.Inbound.Pop(); ok {
			return b, nil
		}
		select {
		case <-c.Inbound.Readable():
		case <-ctx.Done():
			return 0, c.mapErr(ctx.Err())
		}
	}
}

func (c *Channel) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func (c *Channel) mapErr(err error) error {
	if err == context.DeadlineExceeded {
		return ErrTransportTimeout
	}
	return err
}

var (
	finalOK    = [][]byte{[]byte("OK"), []byte("SEND OK")}
	finalError = [][]byte{[]byte("ERROR"), []byte("FAIL"), []byte("SEND FAIL")}
	cmeError   = []byte("+CME ERROR")
)

func trimLine(line []byte) []byte {
	return bytes.TrimRight(line, "\r\n")
}

func isError(line []byte) bool {
	for _, final := range finalError {
		if bytes.Equal(line, final) {
			return true
		}
	}
	return bytes.HasPrefix(line, cmeError)
}

func isFinal(line []byte) bool {
	line = trimLine(line)
	for _, final := range finalOK {
		if bytes.Equal(line, final) {
			return true
		}
	}
	return isError(line)
}
