package at

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sunrise.go/pkg/l0/comm"
)

func TestParseMode(t *testing.T) {
	mode, rest, explicit, err := parseMode([]string{"-mode=join", `AT+CWJAP="a","b"`})
	require.NoError(t, err)
	assert.True(t, explicit)
	assert.Equal(t, comm.ModeNetworkJoin, mode)
	assert.Equal(t, []string{`AT+CWJAP="a","b"`}, rest)

	mode, rest, explicit, err = parseMode([]string{"AT"})
	require.NoError(t, err)
	assert.False(t, explicit)
	assert.Equal(t, comm.ModePlain, mode)
	assert.Equal(t, []string{"AT"}, rest)

	_, _, _, err = parseMode([]string{"-mode=nope"})
	assert.Error(t, err)
}
