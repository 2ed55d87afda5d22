package timsim

import (
	"errors"
	"fmt"
)

// ErrInterruptStorm is returned when a handler returns without clearing
// the condition that raised the interrupt
var ErrInterruptStorm = errors.New("interrupt storm")

// DefaultStormLimit is the number of back-to-back dispatches treated as a storm
const DefaultStormLimit = 8

// Dispatcher plays the part of the NVIC for one simulated timer: while the
// line is asserted and the line is unmasked, it calls Handler.
type Dispatcher struct {
	Timer   *Timer
	Handler func()

	// Limit bounds back-to-back dispatches for one assertion (0 = DefaultStormLimit)
	Limit int

	enabled    bool
	dispatches int
}

// NewDispatcher creates a dispatcher with the line masked
func NewDispatcher(t *Timer, handler func()) *Dispatcher {
	return &Dispatcher{Timer: t, Handler: handler}
}

// Enable unmasks the interrupt line
func (d *Dispatcher) Enable() {
	d.enabled = true
}

// Disable masks the interrupt line
func (d *Dispatcher) Disable() {
	d.enabled = false
}

// Dispatches returns the total number of handler invocations
func (d *Dispatcher) Dispatches() int {
	return d.dispatches
}

// Service invokes the handler while the line is asserted. It returns the
// number of invocations and ErrInterruptStorm if the line is still asserted
// after Limit of them.
func (d *Dispatcher) Service() (int, error) {
	if !d.enabled {
		return 0, nil
	}
	limit := d.Limit
	if limit <= 0 {
		limit = DefaultStormLimit
	}

	n := 0
	for d.Timer.IRQLine() {
		if n == limit {
			return n, fmt.Errorf("%w: line still asserted after %d dispatches", ErrInterruptStorm, n)
		}
		d.Handler()
		d.dispatches++
		n++
	}
	return n, nil
}

// Run advances the timer by cycles in steps of quantum and services the
// line after every step. It stops at the first storm.
func (d *Dispatcher) Run(cycles, quantum uint64) (int, error) {
	if quantum == 0 {
		quantum = cycles
	}
	total := 0
	for cycles > 0 {
		step := quantum
		if step > cycles {
			step = cycles
		}
		d.Timer.Step(step)
		cycles -= step

		n, err := d.Service()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
