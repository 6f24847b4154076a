package sunrise

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
)

type busTx struct {
	addr uint16
	w    []byte
}

type recordingBus struct {
	txs []busTx
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.txs = append(b.txs, busTx{addr: addr, w: append([]byte(nil), w...)})
	return nil
}

func (b *recordingBus) frames() [][]byte {
	var frames [][]byte
	for _, tx := range b.txs {
		if len(tx.w) == 17 {
			frames = append(frames, tx.w)
		}
	}
	return frames
}

func TestSystemDisplay(t *testing.T) {
	conf := testConfig()
	conf.Display = DisplayConfig{Enabled: true, Address: 0x70, Brightness: 8}
	sys := Assemble(conf, esp8266.NewSim())
	bus := &recordingBus{}
	require.NoError(t, sys.AttachDisplay(bus))

	require.Len(t, bus.txs, 4)
	assert.Equal(t, []byte{0x21}, bus.txs[0].w)
	assert.Equal(t, []byte{0x81}, bus.txs[1].w)
	assert.Equal(t, []byte{0xE8}, bus.txs[2].w)
	boot := bus.txs[3].w
	assert.Equal(t, []byte{0x3F, 0x06, 0x5B}, []byte{boot[1], boot[3], boot[7]})

	conf.Script = []StepConfig{{Name: "probe", Command: "AT"}, {Name: "mode", Command: "AT+CWMODE=3"}}
	results, err := sys.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	frames := bus.frames()
	require.Len(t, frames, 3)
	// step 2 shown in the rightmost digit.
	assert.Equal(t, byte(0x5B), frames[2][1+4*2])
}

func TestNewSystemInvalidConfig(t *testing.T) {
	conf := testConfig()
	conf.Link = "bogus://"
	_, err := NewSystem(conf)
	assert.Error(t, err)

	conf.Link = ""
	_, err = NewSystem(conf)
	assert.Error(t, err)
}

func TestNewSystemSim(t *testing.T) {
	conf := testConfig()
	conf.Link = "sim://?ssid=home&password=secret"
	sys, err := NewSystem(conf)
	require.NoError(t, err)
	defer sys.Close()
	results, err := sys.Run(context.Background())
	require.Len(t, results, 9)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.NoError(t, results[4].Err)
}
