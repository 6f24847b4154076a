package telemetry

import (
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// ReportTopic is the topic suffix of exchange reports.
const ReportTopic = "report"

// DefaultPublishTimeout bounds waiting for a publish to complete.
const DefaultPublishTimeout = 2 * time.Second

// Reporter receives exchange reports.
type Reporter interface {
	Report(*ExchangeReport) error
}

// Pubber is the publishing side of Queue.
type Pubber interface {
	Pub(topic string, payload []byte) paho.Token
}

// Publisher publishes reports to <device>/report.
type Publisher struct {
	Pubber  Pubber
	Device  string
	Timeout time.Duration
}

// NewPublisher creates a Publisher. An empty device uses the machine ID.
func NewPublisher(pubber Pubber, device string) (*Publisher, error) {
	if device == "" {
		id, err := MachineID()
		if err != nil {
			return nil, err
		}
		device = id
	}
	return &Publisher{Pubber: pubber, Device: device, Timeout: DefaultPublishTimeout}, nil
}

// Topic returns the topic reports are published to, relative to the
// queue prefix.
func (p *Publisher) Topic() string {
	return p.Device + "/" + ReportTopic
}

// Report implements Reporter.
func (p *Publisher) Report(r *ExchangeReport) error {
	payload, err := r.Encode()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	token := p.Pubber.Pub(p.Topic(), payload)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		glog.Warningf("publish report of step %d timed out", r.Step)
		return fmt.Errorf("publish %s: timeout", p.Topic())
	}
	return token.Error()
}

// ReporterFunc is the func form of Reporter.
type ReporterFunc func(*ExchangeReport) error

// Report implements Reporter.
func (f ReporterFunc) Report(r *ExchangeReport) error {
	return f(r)
}

// MachineID retrieves the unique ID identifying the machine.
func MachineID() (string, error) {
	id, err := machineid.ID()
	if err != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	return id, nil
}

// ReportFilter is the subscription filter matching reports of all devices.
func ReportFilter() string {
	return "+/" + ReportTopic
}
