package comm

// Line terminator bytes.
const (
	CR byte = '\r'
	LF byte = '\n'
)

// EchoTerminators is the number of line feeds consumed after sending a
// command: the modem echoes the command as "<cmd>\r\r\n" followed by an
// extra "\r\n" before the reply starts. It doesn't depend on the command.
const EchoTerminators = 2

// FrameState is the state of a single exchange.
type FrameState int

const (
	// StateIdle means no exchange is in progress.
	StateIdle FrameState = iota
	// StateAwaitEcho means the echo of a sent command is being discarded.
	StateAwaitEcho
	// StateAwaitTerminators means reply bytes are being collected.
	StateAwaitTerminators
	// StateDone means the expected line feeds have been observed.
	StateDone
)

// String implements fmt.Stringer.
func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitEcho:
		return "await-echo"
	case StateAwaitTerminators:
		return "await-terminators"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Framer tracks the progress of an exchange one byte at a time.
type Framer struct {
	state     FrameState
	remaining int
	seen      int
}

// State gets the current state.
func (f *Framer) State() FrameState {
	return f.state
}

// Remaining returns the number of line feeds still expected.
func (f *Framer) Remaining() int {
	return f.remaining
}

// Seen returns the number of line feeds observed in the current phase.
func (f *Framer) Seen() int {
	return f.seen
}

// BeginEcho starts discarding the echo of a sent command.
func (f *Framer) BeginEcho() {
	f.begin(StateAwaitEcho, EchoTerminators)
}

// BeginReply starts collecting a reply expecting terminators line feeds.
func (f *Framer) BeginReply(terminators int) {
	f.begin(StateAwaitTerminators, terminators)
}

// Reset returns to idle.
func (f *Framer) Reset() {
	f.state, f.remaining, f.seen = StateIdle, 0, 0
}

// Feed consumes one byte and returns the resulting state.
func (f *Framer) Feed(b byte) FrameState {
	switch f.state {
	case StateAwaitEcho, StateAwaitTerminators:
		if b == LF {
			f.seen++
			if f.remaining--; f.remaining <= 0 {
				f.remaining, f.state = 0, StateDone
			}
		}
	}
	return f.state
}

func (f *Framer) begin(state FrameState, terminators int) {
	f.seen = 0
	if terminators <= 0 {
		f.state, f.remaining = StateDone, 0
		return
	}
	f.state, f.remaining = state, terminators
}
