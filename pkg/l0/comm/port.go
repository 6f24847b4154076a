package comm

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/sunrise.go/pkg/framework"
)

// Port bridges a byte stream to a pair of rings. It plays the role of the
// UART interrupt handler: received bytes are pushed into Inbound and bytes
// queued in Outbound are transmitted. Neither side ever blocks on a ring;
// bytes received while Inbound is full are dropped and counted.
type Port struct {
	ReadWriter io.ReadWriter
	Inbound    *Ring
	Outbound   *Ring

	// ChunkSize is the size of a single stream read.
	ChunkSize int
	// ReadTimeout is set when Read of ReadWriter returns after a timeout
	// with no data, as (0, nil), (0, io.EOF) or a timeout error.
	ReadTimeout bool
}

// ReadTimeouter is implemented by streams configured with a read timeout.
type ReadTimeouter interface {
	HasReadTimeout() bool
}

// NewPort creates a Port with rings of default sizes.
func NewPort(rw io.ReadWriter) *Port {
	return NewPortSize(rw, DefaultInboundSize, DefaultOutboundSize)
}

// NewPortSize creates a Port with rings of the given capacities.
// ReadTimeout is taken from rw if it implements ReadTimeouter.
func NewPortSize(rw io.ReadWriter, inbound, outbound int) *Port {
	p := &Port{
		ReadWriter: rw,
		Inbound:    NewRing(inbound),
		Outbound:   NewRing(outbound),
	}
	if rt, ok := rw.(ReadTimeouter); ok {
		p.ReadTimeout = rt.HasReadTimeout()
	}
	return p
}

// NewChannel creates a Channel on the rings of this Port.
func (p *Port) NewChannel() *Channel {
	return NewChannel(p.Inbound, p.Outbound)
}

// Name implements framework.Named.
func (p *Port) Name() string {
	return "port"
}

// Run pumps bytes in both directions until ctx is done or the stream fails.
// The stream is closed on return.
func (p *Port) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	txErrCh := make(chan error, 1)
	go func() {
		txErrCh <- p.transmit(ctx)
		cancel()
	}()
	err := fx.RunWithContextCloser(ctx, p, func() error {
		return p.receive(ctx)
	})
	cancel()
	if txErr := <-txErrCh; txErr != nil && txErr != ctx.Err() {
		err = txErr
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		glog.Errorf("port stopped: %v", err)
	}
	return err
}

// Close implements io.Closer.
func (p *Port) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (p *Port) receive(ctx context.Context) error {
	size := p.ChunkSize
	if size <= 0 {
		size = 64
	}
	buf := make([]byte, size)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := p.ReadWriter.Read(buf)
		dropped := 0
		for _, b := range buf[:n] {
			if !p.Inbound.Push(b) {
				dropped++
			}
		}
		if dropped > 0 {
			glog.V(1).Infof("inbound full, dropped %d bytes", dropped)
		}
		if err != nil && !p.idle(n, err) {
			return err
		}
	}
}

// idle tells whether a read only timed out.
func (p *Port) idle(n int, err error) bool {
	return p.ReadTimeout && n == 0 && (err == io.EOF || os.IsTimeout(err))
}

func (p *Port) transmit(ctx context.Context) error {
	buf := make([]byte, p.Outbound.Cap())
	for {
		n := 0
		for n < len(buf) {
			b, ok := p.Outbound.Pop()
			if !ok {
				break
			}
			buf[n] = b
			n++
		}
		if n > 0 {
			glog.V(4).Infof("TX % x", buf[:n])
			if _, err := p.ReadWriter.Write(buf[:n]); err != nil {
				return err
			}
			continue
		}
		select {
		case <-p.Outbound.Readable():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
