package sunrise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sunrise.go/pkg/display/ht16k33"
	fx "github.com/robotalks/sunrise.go/pkg/framework"
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/l0/link"
	"github.com/robotalks/sunrise.go/pkg/telemetry"
)

// StatsInterval is the interval of logging ring statistics.
const StatsInterval = 10 * time.Second

// System owns the rings, the port pumping them, and the collaborators of
// the script. It's created once and lives for the whole run.
type System struct {
	Config   *Config
	Port     *comm.Port
	Channel  *comm.Channel
	Display  *ht16k33.Display
	Reporter telemetry.Reporter

	closers    []io.Closer
	lastDrops  [2]uint32
	statsDumps uint32
}

// NewSystem opens the link, the display and telemetry per config.
func NewSystem(conf *Config) (*System, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	stream, err := link.Open(conf.Link)
	if err != nil {
		return nil, err
	}
	s := Assemble(conf, stream)
	fail := func(err error) (*System, error) {
		s.Close()
		stream.Close()
		return nil, err
	}
	if conf.Display.Enabled {
		bus, err := ht16k33.OpenBus(conf.Display.Bus)
		if err != nil {
			return fail(err)
		}
		s.closers = append(s.closers, bus)
		if err := s.AttachDisplay(bus); err != nil {
			return fail(err)
		}
	}
	if conf.MQTTURL != "" {
		if err := s.connectTelemetry(); err != nil {
			return fail(err)
		}
	}
	return s, nil
}

// Assemble creates the rings, port and channel on an opened stream.
func Assemble(conf *Config, stream io.ReadWriter) *System {
	port := comm.NewPortSize(stream, conf.InboundSize, conf.OutboundSize)
	ch := port.NewChannel()
	ch.Timeout = conf.Timeout
	ch.EchoLimit = conf.EchoLimit
	return &System{Config: conf, Port: port, Channel: ch}
}

// AttachDisplay initializes the display on the bus and shows the boot
// pattern.
func (s *System) AttachDisplay(bus ht16k33.Bus) error {
	d := ht16k33.New(bus, uint16(s.Config.Display.Address))
	if err := d.Init(uint8(s.Config.Display.Brightness)); err != nil {
		return err
	}
	d.SetRow(0, 0x3F)
	d.SetRow(1, 0x06)
	d.SetRow(3, 0x5B)
	if err := d.Flush(); err != nil {
		return err
	}
	s.Display = d
	return nil
}

func (s *System) connectTelemetry() error {
	q, err := telemetry.NewQueueFromURL(s.Config.MQTTURL)
	if err != nil {
		return fmt.Errorf("invalid MQTT URL: %w", err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", s.Config.MQTTURL, token.Error())
	}
	s.closers = append(s.closers, q)
	pub, err := telemetry.NewPublisher(q, s.Config.Device)
	if err != nil {
		return err
	}
	glog.Infof("reporting to %s%s", q.TopicPrefix, pub.Topic())
	s.Reporter = pub
	return nil
}

// NewSequencer creates the Sequencer running the configured script.
func (s *System) NewSequencer() (*Sequencer, error) {
	script, err := s.Config.BuildScript()
	if err != nil {
		return nil, err
	}
	seq := NewSequencer(s.Channel, script)
	seq.ReplySize = s.Config.ReplySize
	seq.AbortOnError = s.Config.AbortOnError
	seq.Reporter = s.Reporter
	if s.Display != nil {
		seq.Progress = s.Display
	}
	return seq, nil
}

// Run starts the port and runs the script once.
func (s *System) Run(ctx context.Context) ([]StepResult, error) {
	seq, err := s.NewSequencer()
	if err != nil {
		return nil, err
	}
	stats := fx.NewPeriodic(StatsInterval, s.logStats)
	seq.OnStepFailed = func(*StepResult) { stats.TriggerNext() }
	runner := fx.NewRunnerWith(ctx)
	runner.Go(
		fx.NamedRun(s.Port.Name(), fx.RunFunc(func(ctx context.Context) error {
			err := s.Port.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				runner.Stop()
			}
			return err
		})),
		fx.NamedRun("stats", stats),
	)
	results, err := seq.Run(runner.Context)
	runner.Stop()
	var errs fx.AggregatedError
	errs.Add(err, runner.Wait())
	return results, errs.Aggregate()
}

func (s *System) logStats(time.Time) error {
	atomic.AddUint32(&s.statsDumps, 1)
	in, out := s.Port.Inbound.Stats(), s.Port.Outbound.Stats()
	glog.V(1).Infof("inbound %+v outbound %+v", in, out)
	if in.Drops != s.lastDrops[0] || out.Drops != s.lastDrops[1] {
		glog.Warningf("ring overflow: inbound dropped %d, outbound dropped %d", in.Drops, out.Drops)
		s.lastDrops = [2]uint32{in.Drops, out.Drops}
	}
	return nil
}

// Close releases the display bus and telemetry connection.
func (s *System) Close() error {
	var errs fx.AggregatedError
	for n := len(s.closers) - 1; n >= 0; n-- {
		errs.Add(s.closers[n].Close())
	}
	s.closers = nil
	return errs.Aggregate()
}
