package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramer(t *testing.T) {
	testCases := []struct {
		name      string
		begin     func(*Framer)
		in        string
		states    []FrameState
		remaining int
	}{
		{
			name:  "echo sync",
			begin: (*Framer).BeginEcho,
			in:    "AT\r\r\n\r\n",
			states: []FrameState{
				StateAwaitEcho, StateAwaitEcho, StateAwaitEcho, StateAwaitEcho,
				StateAwaitEcho, StateAwaitEcho, StateDone,
			},
		},
		{
			name:      "echo partial",
			begin:     (*Framer).BeginEcho,
			in:        "AT\r\r\n",
			states:    []FrameState{StateAwaitEcho, StateAwaitEcho, StateAwaitEcho, StateAwaitEcho, StateAwaitEcho},
			remaining: 1,
		},
		{
			name:   "plain reply",
			begin:  func(f *Framer) { f.BeginReply(ModePlain.Terminators()) },
			in:     "OK\r\n",
			states: []FrameState{StateAwaitTerminators, StateAwaitTerminators, StateAwaitTerminators, StateDone},
		},
		{
			name:  "join reply",
			begin: func(f *Framer) { f.BeginReply(ModeNetworkJoin.Terminators()) },
			in:    "A\nB\nC\n",
			states: []FrameState{
				StateAwaitTerminators, StateAwaitTerminators,
				StateAwaitTerminators, StateAwaitTerminators,
				StateAwaitTerminators, StateDone,
			},
		},
		{
			name:   "bytes after done are ignored",
			begin:  func(f *Framer) { f.BeginReply(1) },
			in:     "\nX\n",
			states: []FrameState{StateDone, StateDone, StateDone},
		},
		{
			name:   "idle ignores input",
			begin:  (*Framer).Reset,
			in:     "\n\n",
			states: []FrameState{StateIdle, StateIdle},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var f Framer
			tc.begin(&f)
			for n, b := range []byte(tc.in) {
				require.Equalf(t, tc.states[n], f.Feed(b), "byte[%d] %q", n, b)
			}
			require.Equal(t, tc.remaining, f.Remaining())
		})
	}
}

func TestFramerZeroTerminators(t *testing.T) {
	var f Framer
	f.BeginReply(0)
	require.Equal(t, StateDone, f.State())
}

func TestModeTable(t *testing.T) {
	require.Equal(t, 1, ModePlain.Terminators())
	require.Equal(t, 3, ModeNetworkJoin.Terminators())
	require.Equal(t, 2, EchoTerminators)

	m := RegisterMode("status-pair", 2)
	require.Equal(t, 2, m.Terminators())
	require.Equal(t, "status-pair", m.String())
	found, ok := ModeByName("status-pair")
	require.True(t, ok)
	require.Equal(t, m, found)

	found, ok = ModeByName("join")
	require.True(t, ok)
	require.Equal(t, ModeNetworkJoin, found)

	require.Equal(t, 1, Mode(1000).Terminators())
	require.Equal(t, "mode(1000)", Mode(1000).String())
}

func TestRegisterModeTwice(t *testing.T) {
	m := RegisterMode("status-triple", 3)
	require.Equal(t, m, RegisterMode("status-triple", 3))
	found, ok := ModeByName("status-triple")
	require.True(t, ok)
	require.Equal(t, m, found)

	require.Equal(t, ModePlain, RegisterMode("plain", 1))
	require.Panics(t, func() { RegisterMode("status-triple", 2) })
}
