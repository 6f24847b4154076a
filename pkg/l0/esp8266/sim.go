package esp8266

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// Sim simulates an ESP8266 modem on the other side of a serial link.
//
// Every command line is echoed back as "<cmd>\r\r\n\r\n" before the reply,
// like the real firmware does. Replies are shaped to the terminator counts
// of the commands: one line for plain commands, three for joining a network.
// After AT+CIPSEND=n the simulator collects n raw bytes and answers SEND OK.
type Sim struct {
	lock     sync.Mutex
	out      bytes.Buffer
	line     bytes.Buffer
	replies  map[string][]string
	ssid     string
	password string
	muted    bool
	dataLeft int
	data     []byte
	commands []string
	payloads [][]byte

	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSim creates a simulated modem accepting any network credentials.
func NewSim() *Sim {
	return &Sim{
		replies: make(map[string][]string),
		notify:  make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// SetNetwork restricts the credentials accepted by AT+CWJAP.
func (s *Sim) SetNetwork(ssid, password string) *Sim {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ssid, s.password = ssid, password
	return s
}

// SetReply overrides the reply lines of a command. With no lines the
// command is echoed but never answered.
func (s *Sim) SetReply(cmd string, lines ...string) *Sim {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.replies[cmd] = lines
	return s
}

// Mute stops all output, including echoes.
func (s *Sim) Mute(muted bool) *Sim {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.muted = muted
	return s
}

// Inject queues raw bytes as if the modem emitted them unsolicited.
func (s *Sim) Inject(p []byte) {
	s.lock.Lock()
	s.out.Write(p)
	s.lock.Unlock()
	s.wake()
}

// Commands returns the command lines received so far.
func (s *Sim) Commands() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.commands...)
}

// Payloads returns the completed CIPSEND payloads.
func (s *Sim) Payloads() [][]byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([][]byte(nil), s.payloads...)
}

// Read implements io.Reader. It blocks until output is available.
func (s *Sim) Read(p []byte) (int, error) {
	for {
		s.lock.Lock()
		if s.out.Len() > 0 {
			n, _ := s.out.Read(p)
			s.lock.Unlock()
			return n, nil
		}
		s.lock.Unlock()
		select {
		case <-s.notify:
		case <-s.closed:
			return 0, io.EOF
		}
	}
}

// Write implements io.Writer.
func (s *Sim) Write(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	s.lock.Lock()
	for _, b := range p {
		s.feed(b)
	}
	pending := s.out.Len() > 0
	s.lock.Unlock()
	if pending {
		s.wake()
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Sim) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *Sim) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Sim) feed(b byte) {
	if s.dataLeft > 0 {
		s.data = append(s.data, b)
		if s.dataLeft--; s.dataLeft == 0 {
			s.payloads = append(s.payloads, s.data)
			glog.V(4).Infof("SIM payload % x", s.data)
			s.data = nil
			s.reply(ReplySendOK)
		}
		return
	}
	if b != '\n' {
		s.line.WriteByte(b)
		return
	}
	cmd := strings.TrimRight(s.line.String(), "\r")
	s.line.Reset()
	s.commands = append(s.commands, cmd)
	glog.V(4).Infof("SIM command %q", cmd)
	s.emit(cmd + "\r\r\n\r\n")
	s.reply(s.answer(cmd)...)
}

func (s *Sim) answer(cmd string) []string {
	if lines, ok := s.replies[cmd]; ok {
		return lines
	}
	switch {
	case cmd == CmdProbe, cmd == CmdReset, strings.HasPrefix(cmd, "AT+CWMODE="):
		return []string{ReplyOK}
	case strings.HasPrefix(cmd, joinPrefix):
		if s.ssid != "" && cmd != JoinCommand(s.ssid, s.password) {
			return []string{"+CWJAP:2", "", ReplyFail}
		}
		return []string{ReplyWiFiConnected, ReplyWiFiGotIP, ReplyOK}
	case strings.HasPrefix(cmd, "AT+CIPSTART="):
		return []string{ReplyOK}
	case strings.HasPrefix(cmd, sendPrefix):
		size, err := strconv.Atoi(cmd[len(sendPrefix):])
		if err != nil || size <= 0 || size > 2048 {
			return []string{ReplyError}
		}
		s.dataLeft = size
		return []string{ReplyOK}
	}
	return []string{ReplyError}
}

func (s *Sim) reply(lines ...string) {
	for _, line := range lines {
		s.emit(line + "\r\n")
	}
}

func (s *Sim) emit(text string) {
	if !s.muted {
		s.out.WriteString(text)
	}
}
