package sunrise

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/sunrise.go/pkg/framework"
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/telemetry"
)

// DefaultReplySize is the reply buffer size of each step.
const DefaultReplySize = 48

// Progress shows the number of the running step.
type Progress interface {
	SetNumber(int)
	Flush() error
}

// StepResult is the outcome of a step.
type StepResult struct {
	// Index is 1-based.
	Index    int
	Step     Step
	Sent     int
	Reply    []byte
	Err      error
	Duration time.Duration
}

// StepError is the error of a failed step.
type StepError struct {
	Index int
	Name  string
	Err   error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %s: %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the cause.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Sequencer runs a Script over a Channel, one step at a time. Failed steps
// are never retried.
type Sequencer struct {
	Channel *comm.Channel
	Script  Script

	// ReplySize is the reply buffer size of each step.
	ReplySize int
	// AbortOnError stops at the first failed step. By default all steps
	// run regardless of failures.
	AbortOnError bool

	// Progress and Reporter are optional.
	Progress Progress
	Reporter telemetry.Reporter
	// OnStepFailed is called after a step fails.
	OnStepFailed func(*StepResult)
}

// NewSequencer creates a Sequencer.
func NewSequencer(ch *comm.Channel, script Script) *Sequencer {
	return &Sequencer{Channel: ch, Script: script, ReplySize: DefaultReplySize}
}

// Run executes the script. The returned error aggregates the failed steps.
func (s *Sequencer) Run(ctx context.Context) ([]StepResult, error) {
	var errs fx.AggregatedError
	results := make([]StepResult, 0, len(s.Script))
	var prev []byte
	for n, step := range s.Script {
		if err := ctx.Err(); err != nil {
			return results, errs.Add(err).Aggregate()
		}
		s.showProgress(n + 1)
		res := s.runStep(ctx, n+1, step, prev)
		prev = res.Reply
		results = append(results, res)
		s.report(&res)
		if res.Err == nil {
			glog.Infof("step %d %s: %q", res.Index, step.Name, res.Reply)
			continue
		}
		glog.Warningf("step %d %s failed: %v", res.Index, step.Name, res.Err)
		errs.Add(&StepError{Index: res.Index, Name: step.Name, Err: res.Err})
		if s.OnStepFailed != nil {
			s.OnStepFailed(&res)
		}
		if s.AbortOnError {
			break
		}
	}
	return results, errs.Aggregate()
}

func (s *Sequencer) runStep(ctx context.Context, index int, step Step, prev []byte) (res StepResult) {
	res = StepResult{Index: index, Step: step}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	if step.Local() {
		if step.Handle != nil {
			res.Err = step.Handle(prev)
		}
		return
	}

	size := s.ReplySize
	if size <= 0 {
		size = DefaultReplySize
	}
	buf := make([]byte, size)
	if step.Command != "" {
		res.Sent, res.Err = s.Channel.SendCommand(ctx, step.Command)
	} else {
		res.Sent, res.Err = s.Channel.SendRaw(ctx, step.Payload)
	}
	if res.Err != nil {
		return
	}
	n, err := s.Channel.ReadResponse(ctx, buf, step.Mode)
	res.Reply, res.Err = buf[:n], err
	if res.Err == nil && step.Handle != nil {
		res.Err = step.Handle(res.Reply)
	}
	return
}

func (s *Sequencer) showProgress(index int) {
	if s.Progress == nil {
		return
	}
	s.Progress.SetNumber(index)
	if err := s.Progress.Flush(); err != nil {
		glog.Warningf("display: %v", err)
	}
}

func (s *Sequencer) report(res *StepResult) {
	if s.Reporter == nil {
		return
	}
	r := res.Report()
	in, out := s.Channel.Inbound.Stats(), s.Channel.Outbound.Stats()
	r.InboundDrops, r.OutboundDrops = uint64(in.Drops), uint64(out.Drops)
	r.InboundHighWater = in.HighWater
	if err := s.Reporter.Report(r); err != nil {
		glog.Warningf("report step %d: %v", res.Index, err)
	}
}

// Report converts the result into a telemetry report.
func (r *StepResult) Report() *telemetry.ExchangeReport {
	report := &telemetry.ExchangeReport{
		Step:        uint32(r.Index),
		Name:        r.Step.Name,
		Command:     r.Step.Command,
		Mode:        r.Step.Mode.String(),
		Reply:       r.Reply,
		Sent:        int32(r.Sent),
		Received:    int32(len(r.Reply)),
		DurationUs:  r.Duration.Microseconds(),
		TimestampMs: time.Now().UnixNano() / int64(time.Millisecond),
	}
	if r.Step.Local() {
		report.Mode = ""
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}
