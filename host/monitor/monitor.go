// Package monitor checks the tick reports streamed by the firmware against
// the period the firmware says it programmed.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"time"

	"timitr/core"
	"timitr/protocol"
)

var ErrConfigMismatch = errors.New("auto-reload does not match period")

// Status classifies one observation
type Status uint8

const (
	StatusOK Status = iota
	StatusStorm
	StatusSlow
	StatusStalled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStorm:
		return "storm"
	case StatusSlow:
		return "slow"
	case StatusStalled:
		return "stalled"
	}
	return "unknown"
}

// Observation is the monitor's verdict on one report interval
type Observation struct {
	Status   Status
	Ticks    uint32        // total ticks reported by the firmware
	Delta    uint32        // ticks since the previous report
	Elapsed  time.Duration // firmware clock since the previous report
	Period   time.Duration // observed mean tick period
	Expected time.Duration
}

func (o Observation) String() string {
	if o.Status == StatusStalled {
		return fmt.Sprintf("%-7s ticks=%d no report for %v", o.Status, o.Ticks, o.Elapsed)
	}
	return fmt.Sprintf("%-7s ticks=%d delta=%d period=%v expected=%v",
		o.Status, o.Ticks, o.Delta, o.Period, o.Expected)
}

// Options tune the monitor. Zero values select the defaults.
type Options struct {
	// Tolerance is the accepted relative deviation of the tick period
	Tolerance float64
	// StallTimeout is how long Run waits for a report before flagging a stall
	StallTimeout time.Duration
	// Follow keeps Run reading past io.EOF, which is how a serial
	// read timeout surfaces
	Follow bool
}

const (
	DefaultTolerance    = 0.5
	DefaultStallTimeout = 5 * time.Second
)

// Monitor decodes the firmware stream. It is not safe for concurrent use.
type Monitor struct {
	opts    Options
	scanner protocol.Scanner
	now     func() time.Time

	config     *protocol.TimerConfig
	last       *protocol.TickReport
	lastReport time.Time
	stalled    bool
	skipped    int
	unknown    int
	restarts   int
}

// New creates a Monitor
func New(opts Options) *Monitor {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}
	return &Monitor{opts: opts, now: time.Now}
}

// Config returns the last timer configuration received
func (m *Monitor) Config() *protocol.TimerConfig {
	return m.config
}

// Expected returns the tick period announced by the firmware
func (m *Monitor) Expected() time.Duration {
	if m.config == nil {
		return 0
	}
	return time.Duration(m.config.PeriodMs) * time.Millisecond
}

// FrameErrors returns the number of corrupt message blocks seen
func (m *Monitor) FrameErrors() int {
	return m.scanner.Errors()
}

// Skipped returns the number of reports dropped while waiting for a config
func (m *Monitor) Skipped() int {
	return m.skipped
}

// Unknown returns the number of payloads skipped because they could not be
// decoded, including message ids this monitor does not know
func (m *Monitor) Unknown() int {
	return m.unknown
}

// Restarts returns the number of times the tick count went backwards, which
// happens when the firmware reboots
func (m *Monitor) Restarts() int {
	return m.restarts
}

// Feed decodes data and returns an observation for every tick report after
// the first
func (m *Monitor) Feed(data []byte) ([]Observation, error) {
	m.scanner.Feed(data)

	var out []Observation
	for {
		_, payload, ok := m.scanner.Next()
		if !ok {
			return out, nil
		}
		msg, err := protocol.DecodeMessage(payload)
		if err != nil {
			// newer firmware may send messages we do not know
			m.unknown++
			continue
		}

		switch {
		case msg.Config != nil:
			if err := checkConfig(msg.Config); err != nil {
				return out, err
			}
			if m.config == nil || *m.config != *msg.Config {
				m.last = nil
			}
			m.config = msg.Config
		case msg.Report != nil:
			// the firmware repeats its config; until then there is
			// nothing to compare against
			if m.config == nil {
				m.skipped++
				continue
			}
			m.lastReport = m.now()
			m.stalled = false
			if obs, ok := m.observe(msg.Report); ok {
				out = append(out, obs)
			}
			m.last = msg.Report
		}
	}
}

func checkConfig(c *protocol.TimerConfig) error {
	if want := core.AutoReload(c.PeriodMs); c.AutoReload != want {
		return fmt.Errorf("%w: period %d ms, ARR=%d, expected %d",
			ErrConfigMismatch, c.PeriodMs, c.AutoReload, want)
	}
	return nil
}

func (m *Monitor) observe(r *protocol.TickReport) (Observation, bool) {
	if m.last == nil {
		return Observation{}, false
	}
	// firmware restarted: the new report becomes the baseline
	if r.Ticks < m.last.Ticks {
		m.restarts++
		return Observation{}, false
	}

	obs := Observation{
		Ticks:    r.Ticks,
		Delta:    r.Ticks - m.last.Ticks,
		Elapsed:  time.Duration(r.Clock-m.last.Clock) * time.Microsecond,
		Expected: m.Expected(),
	}
	if obs.Delta == 0 {
		obs.Status = StatusStalled
		return obs, true
	}
	obs.Period = obs.Elapsed / time.Duration(obs.Delta)

	lo := time.Duration(float64(obs.Expected) * (1 - m.opts.Tolerance))
	hi := time.Duration(float64(obs.Expected) * (1 + m.opts.Tolerance))
	switch {
	case obs.Period < lo:
		obs.Status = StatusStorm
	case obs.Period > hi:
		obs.Status = StatusSlow
	default:
		obs.Status = StatusOK
	}
	return obs, true
}

// CheckStall returns a stalled observation once per silence longer than
// StallTimeout
func (m *Monitor) CheckStall() (Observation, bool) {
	if m.lastReport.IsZero() || m.stalled {
		return Observation{}, false
	}
	since := m.now().Sub(m.lastReport)
	if since < m.opts.StallTimeout {
		return Observation{}, false
	}
	m.stalled = true

	obs := Observation{Status: StatusStalled, Elapsed: since, Expected: m.Expected()}
	if m.last != nil {
		obs.Ticks = m.last.Ticks
	}
	return obs, true
}

// Run reads r until it fails and passes every observation to fn
func (m *Monitor) Run(r io.Reader, fn func(Observation)) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			obs, ferr := m.Feed(buf[:n])
			for _, o := range obs {
				fn(o)
			}
			if ferr != nil {
				return ferr
			}
		}
		if o, ok := m.CheckStall(); ok {
			fn(o)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF) && m.opts.Follow:
		case errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("read: %w", err)
		}
	}
}
