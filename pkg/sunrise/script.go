package sunrise

import (
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
)

// Step is a single exchange with the modem.
//
// A step sends either Command, with echo sync, or Payload as raw bytes,
// then reads a reply completed per Mode. A step with neither only runs
// Handle on the reply of the previous step.
type Step struct {
	Name    string
	Command string
	Payload []byte
	Mode    comm.Mode
	// Handle optionally interprets the reply.
	Handle func(reply []byte) error
}

// Local tells whether the step doesn't talk to the modem.
func (s Step) Local() bool {
	return s.Command == "" && len(s.Payload) == 0
}

// Script is an ordered list of steps.
type Script []Step

// Names of the steps in DefaultScript.
const (
	StepProbe      = "probe"
	StepReset      = "reset"
	StepReprobe    = "reprobe"
	StepStationAP  = "station-ap"
	StepJoin       = "join"
	StepOpenNTP    = "open-ntp"
	StepSendNTP    = "send-ntp"
	StepNTPRequest = "ntp-request"
	StepNTPParse   = "ntp-parse"
)

// DefaultScript is the bring-up sequence joining the network with the
// preformatted join command.
func DefaultScript(join string) Script {
	return Script{
		{Name: StepProbe, Command: esp8266.CmdProbe, Mode: comm.ModePlain},
		{Name: StepReset, Command: esp8266.CmdReset, Mode: comm.ModePlain},
		{Name: StepReprobe, Command: esp8266.CmdProbe, Mode: comm.ModePlain},
		{Name: StepStationAP, Command: esp8266.CmdStationAP, Mode: comm.ModePlain},
		{Name: StepJoin, Command: join, Mode: comm.ModeNetworkJoin},
		{Name: StepOpenNTP, Command: esp8266.CmdOpenNTP, Mode: comm.ModePlain},
		{Name: StepSendNTP, Command: esp8266.CmdSendNTP, Mode: comm.ModePlain},
		{Name: StepNTPRequest, Payload: []byte{RequestMarker}, Mode: comm.ModePlain},
		{Name: StepNTPParse, Handle: func(reply []byte) error {
			_, err := ParseReply(reply)
			return err
		}},
	}
}
