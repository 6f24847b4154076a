package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is used when Periodic.Interval is not set.
const DefaultInterval = time.Second

// Periodic invokes a func on every tick until the context is done.
// Errors from the func are logged and don't stop the loop.
type Periodic struct {
	Interval time.Duration
	Func     func(time.Time) error

	wakeUpCh chan struct{}
}

// NewPeriodic creates a Periodic.
func NewPeriodic(interval time.Duration, fn func(time.Time) error) *Periodic {
	return &Periodic{
		Interval: interval,
		Func:     fn,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// TriggerNext schedules the next invocation immediately.
func (p *Periodic) TriggerNext() {
	select {
	case p.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (p *Periodic) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.invoke(now)
		case <-p.wakeUpCh:
			p.invoke(time.Now())
		}
	}
}

func (p *Periodic) invoke(now time.Time) {
	if err := p.Func(now); err != nil {
		glog.Errorf("periodic error: %v", err)
	}
}
