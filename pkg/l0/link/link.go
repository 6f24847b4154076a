// Package link opens the byte streams connecting the transport to a modem.
package link

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
)

// Defaults for serial links.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Open opens a link from URL:
//
//	serial:///dev/ttyUSB0?baud=115200&read-timeout=100ms
//	ws://host:port/path (also wss), a remote serial bridge using binary frames
//	sim://, a simulated modem; sim://?ssid=X&password=Y restricts credentials
func Open(rawURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "serial":
		return openSerial(u)
	case "ws", "wss":
		return openWebsocket(u)
	case "sim":
		sim := esp8266.NewSim()
		if ssid := u.Query().Get("ssid"); ssid != "" {
			sim.SetNetwork(ssid, u.Query().Get("password"))
		}
		glog.Info("using simulated modem")
		return sim, nil
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

// SerialConfig parses the serial port configuration from URL.
func SerialConfig(u *url.URL) (*serial.Config, error) {
	conf := &serial.Config{
		Name:        u.Path,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
	if conf.Name == "" {
		conf.Name = u.Opaque
	}
	if conf.Name == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	query := u.Query()
	if val := query.Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil || baud <= 0 {
			return nil, fmt.Errorf("invalid baud: %q", val)
		}
		conf.Baud = baud
	}
	if val := query.Get("read-timeout"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid read-timeout: %v", err)
		}
		conf.ReadTimeout = d
	}
	return conf, nil
}

func openSerial(u *url.URL) (io.ReadWriteCloser, error) {
	conf, err := SerialConfig(u)
	if err != nil {
		return nil, err
	}
	glog.Infof("opening serial port %s at %d baud", conf.Name, conf.Baud)
	port, err := serial.OpenPort(conf)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", conf.Name, err)
	}
	return &serialPort{ReadWriteCloser: port, readTimeout: conf.ReadTimeout}, nil
}

// serialPort is a serial port whose reads return after readTimeout with no
// data, as (0, io.EOF) on Linux.
type serialPort struct {
	io.ReadWriteCloser
	readTimeout time.Duration
}

// HasReadTimeout implements comm.ReadTimeouter.
func (p *serialPort) HasReadTimeout() bool {
	return p.readTimeout > 0
}

func openWebsocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := "http://localhost/"
	if val := u.Query().Get("origin"); val != "" {
		origin = val
	}
	glog.Infof("connecting serial bridge %s", u.String())
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %v", u.Host, err)
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}
