package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	tty "github.com/mattn/go-tty"

	"timitr/core"
	"timitr/host/monitor"
	"timitr/host/serial"
)

var (
	device    = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud      = flag.Int("baud", 115200, "Baud rate of the firmware UART")
	tolerance = flag.Float64("tolerance", monitor.DefaultTolerance, "Accepted relative deviation of the tick period")
	stall     = flag.Duration("stall", monitor.DefaultStallTimeout, "Silence after which the timer is reported stalled")
	keys      = flag.Bool("keys", false, "Read single keys from the terminal (q quit, s summary)")
	verbose   = flag.Bool("verbose", false, "Print every observation, not only problems")
)

// counts is shared between the reader and the key loop
type counts struct {
	ok, storm, slow, stalled atomic.Uint32
	lastTicks                atomic.Uint32
	quit                     atomic.Bool
}

func (c *counts) add(o monitor.Observation) {
	c.lastTicks.Store(o.Ticks)
	switch o.Status {
	case monitor.StatusOK:
		c.ok.Add(1)
	case monitor.StatusStorm:
		c.storm.Add(1)
	case monitor.StatusSlow:
		c.slow.Add(1)
	case monitor.StatusStalled:
		c.stalled.Add(1)
	}
}

func (c *counts) print() {
	fmt.Printf("ticks=%d ok=%d storm=%d slow=%d stalled=%d\n",
		c.lastTicks.Load(), c.ok.Load(), c.storm.Load(), c.slow.Load(), c.stalled.Load())
}

func main() {
	flag.Parse()

	fmt.Println("timitr monitor - periodic timer interrupt checker")
	fmt.Println("=================================================")

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Printf("Opening %s at %d baud...\n", cfg.Device, cfg.Baud)
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	if err := port.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
	}

	var c counts
	if *keys {
		if err := startKeys(&c, port); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	m := monitor.New(monitor.Options{
		Tolerance:    *tolerance,
		StallTimeout: *stall,
		Follow:       true,
	})

	announced := false
	err = m.Run(port, func(o monitor.Observation) {
		if !announced && m.Config() != nil {
			announced = true
			mc := m.Config()
			fmt.Printf("Timer: period=%d ms mode=%v PSC=%d ARR=%d\n",
				mc.PeriodMs, core.Mode(mc.Mode), mc.Prescaler, mc.AutoReload)
		}
		c.add(o)
		if *verbose || o.Status != monitor.StatusOK {
			fmt.Printf("%s %v\n", time.Now().Format("15:04:05.000"), o)
		}
	})

	c.print()
	if m.FrameErrors() > 0 || m.Skipped() > 0 || m.Unknown() > 0 {
		fmt.Printf("frame errors=%d reports before config=%d unknown messages=%d\n",
			m.FrameErrors(), m.Skipped(), m.Unknown())
	}
	if m.Restarts() > 0 {
		fmt.Printf("firmware restarts=%d\n", m.Restarts())
	}
	if err != nil && !c.quit.Load() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// startKeys reads single keypresses from the controlling terminal. Closing
// the port on q makes Run return.
func startKeys(c *counts, port serial.Port) error {
	term, err := tty.Open()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}

	go func() {
		defer term.Close()
		for {
			r, err := term.ReadRune()
			if err != nil {
				return
			}
			switch r {
			case 'q', 'Q':
				c.quit.Store(true)
				port.Close()
				return
			case 's', 'S':
				c.print()
			}
		}
	}()
	return nil
}
