package sunrise

import (
	"errors"
	"time"

	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
)

// RequestMarker is the first byte of an NTP client request.
const RequestMarker = esp8266.NTPRequestMarker

// PacketSize is the size of an NTP packet.
const PacketSize = 48

// ErrNotImplemented is returned by steps that are not implemented yet.
var ErrNotImplemented = errors.New("not implemented")

// ParseReply extracts the transmit time from an NTP reply.
//
// Only the request marker is sent today, so the server never answers with
// a full packet and nothing is parsed.
func ParseReply(reply []byte) (time.Time, error) {
	return time.Time{}, ErrNotImplemented
}
