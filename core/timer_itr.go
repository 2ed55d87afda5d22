package core

import "errors"

// Counting clock of the periodic timer. 20 counts make one millisecond.
const (
	CountFreq      = 20000
	CountsPerMilli = CountFreq / 1000

	// MinPeriodMs and MaxPeriodMs bound the periods whose auto-reload value
	// fits the 16-bit ARR field
	MinPeriodMs = 1
	MaxPeriodMs = 3276

	arrMask = 0xFFFF
)

// TIMx_CR1 bits
const (
	CR1_CEN  = 1 << 0 // counter enable
	CR1_UDIS = 1 << 1 // update disable
	CR1_URS  = 1 << 2 // update request source
	CR1_OPM  = 1 << 3 // one-pulse mode
	CR1_ARPE = 1 << 7 // auto-reload preload enable
)

// TIMx_DIER, TIMx_SR and TIMx_EGR bits
const (
	DIER_UIE = 1 << 0 // update interrupt enable
	DIER_UDE = 1 << 8 // update DMA request enable
	SR_UIF   = 1 << 0 // update interrupt flag
	EGR_UG   = 1 << 0 // update generation
)

var ErrPeriodRange = errors.New("timer period out of range")

// PeriodError reports a period that does not fit the auto-reload register
type PeriodError struct {
	PeriodMs uint32
}

func (e *PeriodError) Error() string {
	return ErrPeriodRange.Error() + ": " + utoa(e.PeriodMs) + " ms (want " +
		utoa(MinPeriodMs) + "-" + utoa(MaxPeriodMs) + ")"
}

func (e *PeriodError) Unwrap() error {
	return ErrPeriodRange
}

// Mode selects what the counter does after an update event
type Mode uint8

const (
	// ModeOnePulse stops the counter at every update event. The caller
	// restarts it after each tick.
	ModeOnePulse Mode = iota
	// ModeContinuous keeps counting and reloads from ARR at every update.
	ModeContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeOnePulse:
		return "one-pulse"
	case ModeContinuous:
		return "continuous"
	}
	return "Mode(" + utoa(uint32(m)) + ")"
}

// ControlConfig holds the logical fields of CR1
type ControlConfig struct {
	AutoReloadPreload   bool // ARPE: PSC/ARR changes take effect at the next update
	OnePulse            bool // OPM: counter stops at the next update
	UpdateRequestSource bool // URS: only overflow generates an update interrupt
	UpdateDisable       bool // UDIS: no update events at all
	CounterEnable       bool // CEN
}

// Bits encodes the config as a CR1 word
func (c ControlConfig) Bits() uint32 {
	var v uint32
	if c.CounterEnable {
		v |= CR1_CEN
	}
	if c.UpdateDisable {
		v |= CR1_UDIS
	}
	if c.UpdateRequestSource {
		v |= CR1_URS
	}
	if c.OnePulse {
		v |= CR1_OPM
	}
	if c.AutoReloadPreload {
		v |= CR1_ARPE
	}
	return v
}

// ParseControl decodes a CR1 word. Bits outside the fields above are dropped.
func ParseControl(v uint32) ControlConfig {
	return ControlConfig{
		AutoReloadPreload:   v&CR1_ARPE != 0,
		OnePulse:            v&CR1_OPM != 0,
		UpdateRequestSource: v&CR1_URS != 0,
		UpdateDisable:       v&CR1_UDIS != 0,
		CounterEnable:       v&CR1_CEN != 0,
	}
}

// Prescaler returns the PSC value that divides inputHz down to CountFreq.
// A kernel clock below CountFreq cannot reach it; the result is 0 (no
// division) and the timer counts slower than 20 counts per millisecond.
func Prescaler(inputHz uint32) uint32 {
	if inputHz < CountFreq {
		return 0
	}
	return inputHz/CountFreq - 1
}

// AutoReload returns the ARR value for periodMs. The result is truncated to
// the 16-bit field, so periods above MaxPeriodMs wrap.
func AutoReload(periodMs uint32) uint32 {
	return (CountsPerMilli * periodMs) & arrMask
}

// CheckPeriod reports whether periodMs can be programmed without wrapping
func CheckPeriod(periodMs uint32) error {
	if periodMs < MinPeriodMs || periodMs > MaxPeriodMs {
		return &PeriodError{PeriodMs: periodMs}
	}
	return nil
}

// TimerConfig describes the peripheral a PeriodicTimer drives
type TimerConfig struct {
	Peripheral PeripheralID
	InputHz    uint32 // timer kernel clock, at least CountFreq
	Mode       Mode
}

// PeriodicTimer programs a basic timer to raise an update interrupt every
// period. It never starts the counter and never touches the NVIC.
type PeriodicTimer struct {
	regs  TimerRegisters
	clock ClockGate
	cfg   TimerConfig

	periodMs uint32
}

// NewPeriodicTimer creates a driver owning regs
func NewPeriodicTimer(regs TimerRegisters, clock ClockGate, cfg TimerConfig) *PeriodicTimer {
	return &PeriodicTimer{
		regs:  regs,
		clock: clock,
		cfg:   cfg,
	}
}

// Control returns the CR1 settings Init writes
func (p *PeriodicTimer) Control() ControlConfig {
	return ControlConfig{
		AutoReloadPreload: true,
		OnePulse:          p.cfg.Mode == ModeOnePulse,
	}
}

// Init configures the timer for an update interrupt every periodMs
// milliseconds and leaves it stopped with the pending flag clear.
// periodMs outside [MinPeriodMs, MaxPeriodMs] is not rejected; ARR wraps.
func (p *PeriodicTimer) Init(periodMs uint32) {
	if err := CheckPeriod(periodMs); err != nil {
		DebugPrintln("[TIM] init: " + err.Error())
	}
	p.periodMs = periodMs

	p.clock.EnableClock(p.cfg.Peripheral)

	p.regs.PSC().Set(Prescaler(p.cfg.InputHz))
	p.regs.ARR().Set(AutoReload(periodMs))

	// No EGR.UG here: a forced update latches the shadow registers but also
	// sets UIF, which fires the ISR as soon as the NVIC line is unmasked.
	p.regs.CR1().Set(p.Control().Bits())

	p.regs.DIER().ClearBits(DIER_UDE)
	p.regs.DIER().SetBits(DIER_UIE)
	p.regs.SR().ClearBits(SR_UIF)

	RecordEvent(EvtInit, 0, periodMs)
}

// OnInterrupt acknowledges the update interrupt. It must run on every
// dispatch or the line stays asserted.
func (p *PeriodicTimer) OnInterrupt() {
	p.regs.SR().ClearBits(SR_UIF)
}

// PeriodMs returns the period passed to the last Init
func (p *PeriodicTimer) PeriodMs() uint32 {
	return p.periodMs
}

// Mode returns the configured counter mode
func (p *PeriodicTimer) Mode() Mode {
	return p.cfg.Mode
}

// DumpRegisters writes the timer registers through the debug writer
func (p *PeriodicTimer) DumpRegisters() {
	DebugPrintln("[TIM] CR1=" + hex32(p.regs.CR1().Get()) +
		" DIER=" + hex32(p.regs.DIER().Get()) +
		" SR=" + hex32(p.regs.SR().Get()) +
		" PSC=" + hex32(p.regs.PSC().Get()) +
		" ARR=" + hex32(p.regs.ARR().Get()) +
		" CNT=" + hex32(p.regs.CNT().Get()))
}
