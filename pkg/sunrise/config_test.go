package sunrise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sunrise.go/pkg/l0/comm"
)

func TestConfigLoad(t *testing.T) {
	conf := testConfig()
	require.NoError(t, conf.Load([]byte(`
link: serial:///dev/ttyUSB0?baud=9600
timeout: 2s
echo-limit: 64
abort-on-error: true
wifi:
  ssid: lab
  password: pass,word
display:
  enabled: true
  address: 0x71
  brightness: 3
script:
  - name: probe
    command: AT
  - name: join
    command: AT+CWJAP="lab","x"
  - name: marker
    payload: e3
    mode: plain
`)))
	assert.Equal(t, "serial:///dev/ttyUSB0?baud=9600", conf.Link)
	assert.Equal(t, 2*time.Second, conf.Timeout)
	assert.Equal(t, 64, conf.EchoLimit)
	assert.True(t, conf.AbortOnError)
	assert.Equal(t, 0x71, conf.Display.Address)
	assert.Equal(t, `AT+CWJAP="lab","pass\,word"`, conf.JoinCommand())
	require.NoError(t, conf.Validate())

	script, err := conf.BuildScript()
	require.NoError(t, err)
	require.Len(t, script, 3)
	assert.Equal(t, comm.ModePlain, script[0].Mode)
	assert.Equal(t, comm.ModeNetworkJoin, script[1].Mode)
	assert.Equal(t, []byte{0xE3}, script[2].Payload)
}

func TestConfigLoadStrict(t *testing.T) {
	conf := testConfig()
	assert.Error(t, conf.Load([]byte("unknown-key: 1\n")))
}

func TestConfigDefaultScript(t *testing.T) {
	conf := testConfig()
	script, err := conf.BuildScript()
	require.NoError(t, err)
	assert.Equal(t, `AT+CWJAP="home","secret"`, script[4].Command)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"no link", func(c *Config) { c.Link = "" }},
		{"tiny ring", func(c *Config) { c.InboundSize = 1 }},
		{"no reply buffer", func(c *Config) { c.ReplySize = 0 }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"display address", func(c *Config) { c.Display = DisplayConfig{Enabled: true, Address: 0x80} }},
		{"display brightness", func(c *Config) { c.Display = DisplayConfig{Enabled: true, Address: 0x70, Brightness: 16} }},
		{"unknown mode", func(c *Config) { c.Script = []StepConfig{{Command: "AT", Mode: "nope"}} }},
		{"bad payload", func(c *Config) { c.Script = []StepConfig{{Payload: "zz"}} }},
		{"empty step", func(c *Config) { c.Script = []StepConfig{{Name: "nothing"}} }},
		{"command and payload", func(c *Config) { c.Script = []StepConfig{{Command: "AT", Payload: "e3"}} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig()
			tc.modify(conf)
			assert.Error(t, conf.Validate())
		})
	}
	assert.NoError(t, testConfig().Validate())
}
