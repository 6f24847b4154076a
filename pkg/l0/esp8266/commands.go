// Package esp8266 provides the AT command vocabulary of ESP8266 WiFi modems
// and a simulated modem for tests.
package esp8266

import (
	"fmt"
	"strings"

	"github.com/robotalks/sunrise.go/pkg/l0/comm"
)

// Commands sent to the modem.
const (
	// CmdProbe checks the modem is alive.
	CmdProbe = "AT"
	// CmdReset restarts the modem.
	CmdReset = "AT+RST"
	// CmdStationAP selects station+AP mode.
	CmdStationAP = "AT+CWMODE=3"
	// CmdOpenNTP opens a UDP socket to the NIST time server.
	CmdOpenNTP = `AT+CIPSTART="UDP","time.nist.gov",123`
	// CmdSendNTP announces the NTP request payload.
	CmdSendNTP = "AT+CIPSEND=3"

	joinPrefix = "AT+CWJAP="
	sendPrefix = "AT+CIPSEND="
)

// Reply lines.
const (
	ReplyOK            = "OK"
	ReplyError         = "ERROR"
	ReplyFail          = "FAIL"
	ReplySendOK        = "SEND OK"
	ReplyWiFiConnected = "WIFI CONNECTED"
	ReplyWiFiGotIP     = "WIFI GOT IP"
)

// NTPRequestMarker is the first byte of an NTP client request:
// leap indicator 3, version 4, mode 3 (client).
const NTPRequestMarker byte = 0xE3

// JoinCommand formats the command joining a WiFi network.
func JoinCommand(ssid, password string) string {
	return fmt.Sprintf(`%s"%s","%s"`, joinPrefix, quote(ssid), quote(password))
}

// ModeOf returns the terminator mode for the reply of cmd.
func ModeOf(cmd string) comm.Mode {
	if strings.HasPrefix(cmd, joinPrefix) {
		return comm.ModeNetworkJoin
	}
	return comm.ModePlain
}

// AT firmware expects '"', ',' and '\' to be escaped in quoted parameters.
func quote(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"', ',', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
