package comm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echoStream echoes each CR LF terminated line the way the modem does and
// answers with a canned reply.
type echoStream struct {
	readCh  chan []byte
	line    bytes.Buffer
	replies map[string]string
	closed  chan struct{}
	once    sync.Once
}

func newEchoStream(replies map[string]string) *echoStream {
	return &echoStream{
		readCh:  make(chan []byte, 16),
		replies: replies,
		closed:  make(chan struct{}),
	}
}

func (s *echoStream) Read(p []byte) (int, error) {
	select {
	case data := <-s.readCh:
		return copy(p, data), nil
	case <-s.closed:
		return 0, io.EOF
	}
}

func (s *echoStream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.line.WriteByte(b)
		if b != LF {
			continue
		}
		cmd := string(bytes.TrimRight(s.line.Bytes(), "\r\n"))
		s.line.Reset()
		s.readCh <- []byte(cmd + "\r\r\n\r\n")
		if reply, ok := s.replies[cmd]; ok {
			s.readCh <- []byte(reply)
		}
	}
	return len(p), nil
}

func (s *echoStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func runPort(t *testing.T, port *Port) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- port.Run(ctx)
	}()
	return cancel, errCh
}

func TestPortExchange(t *testing.T) {
	stream := newEchoStream(map[string]string{
		"AT":                       "OK\r\n",
		`AT+CWJAP="home","secret"`: "WIFI CONNECTED\r\nWIFI GOT IP\r\nOK\r\n",
	})
	port := NewPort(stream)
	cancel, errCh := runPort(t, port)
	defer cancel()

	ch := port.NewChannel()
	ch.Timeout = time.Second
	buf := make([]byte, 48)

	n, err := ch.Exchange(context.Background(), "AT", buf, ModePlain)
	require.NoError(t, err)
	require.Equal(t, "OK\r\n", string(buf[:n]))

	n, err = ch.Exchange(context.Background(), `AT+CWJAP="home","secret"`, buf, ModeNetworkJoin)
	require.NoError(t, err)
	require.Equal(t, "WIFI CONNECTED\r\nWIFI GOT IP\r\nOK\r\n", string(buf[:n]))

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("port didn't stop")
	}
	select {
	case <-stream.closed:
	default:
		t.Fatal("stream not closed")
	}
}

func TestPortDropsWhenInboundFull(t *testing.T) {
	stream := newEchoStream(nil)
	port := &Port{
		ReadWriter: stream,
		Inbound:    NewRing(8),
		Outbound:   NewRing(8),
	}
	cancel, _ := runPort(t, port)
	defer cancel()

	stream.readCh <- []byte("0123456789abcdef")
	deadline := time.After(time.Second)
	for port.Inbound.Stats().Drops < 8 {
		select {
		case <-deadline:
			t.Fatalf("expect 8 drops, got %d", port.Inbound.Stats().Drops)
		case <-time.After(time.Millisecond):
		}
	}
	require.Equal(t, "01234567", drainRing(port.Inbound))
}

func TestPortStreamError(t *testing.T) {
	stream := newEchoStream(nil)
	port := NewPort(stream)
	_, errCh := runPort(t, port)
	stream.Close()
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("port didn't stop")
	}
}

// timeoutStream behaves like a serial port with a read timeout: reads with
// no data return (0, io.EOF) after a short wait.
type timeoutStream struct {
	readCh   chan []byte
	writeErr error
	closed   chan struct{}
	once     sync.Once
}

func newTimeoutStream() *timeoutStream {
	return &timeoutStream{readCh: make(chan []byte, 4), closed: make(chan struct{})}
}

func (s *timeoutStream) HasReadTimeout() bool { return true }

func (s *timeoutStream) Read(p []byte) (int, error) {
	select {
	case data := <-s.readCh:
		return copy(p, data), nil
	case <-s.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (s *timeoutStream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return len(p), nil
}

func (s *timeoutStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestPortKeepsRunningOnReadTimeout(t *testing.T) {
	stream := newTimeoutStream()
	port := NewPortSize(stream, 16, 16)
	require.True(t, port.ReadTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- port.Run(ctx)
	}()
	time.Sleep(30 * time.Millisecond)
	stream.readCh <- []byte("OK\r\n")

	select {
	case err := <-errCh:
		require.Equal(t, context.DeadlineExceeded, err)
	case <-time.After(time.Second):
		t.Fatal("port didn't stop")
	}
	require.Equal(t, "OK\r\n", drainRing(port.Inbound))
	select {
	case <-stream.closed:
	default:
		t.Fatal("stream not closed")
	}
}

func TestPortWithoutReadTimeoutStopsOnEOF(t *testing.T) {
	stream := newTimeoutStream()
	port := &Port{ReadWriter: stream, Inbound: NewRing(16), Outbound: NewRing(16)}
	_, errCh := runPort(t, port)
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("port didn't stop")
	}
}

func TestPortTransmitError(t *testing.T) {
	stream := newTimeoutStream()
	stream.writeErr = errors.New("write failed")
	port := NewPort(stream)
	cancel, errCh := runPort(t, port)
	defer cancel()
	_, err := port.Outbound.Write([]byte("AT\r\n"))
	require.NoError(t, err)
	select {
	case err := <-errCh:
		require.Equal(t, stream.writeErr, err)
	case <-time.After(time.Second):
		t.Fatal("port didn't stop")
	}
}
