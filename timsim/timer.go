// Package timsim models an STM32 basic timer (TIM6/TIM7) closely enough to
// exercise the periodic timer driver on a host. Register semantics follow
// the reference manual: PSC is always buffered, ARR is buffered when ARPE is
// set, SR bits are rc_w0 and an update event reloads both shadows.
package timsim

import "timitr/core"

// RegID names a register of the simulated block
type RegID uint8

const (
	RegCR1 RegID = iota
	RegDIER
	RegSR
	RegEGR
	RegCNT
	RegPSC
	RegARR
)

func (r RegID) String() string {
	switch r {
	case RegCR1:
		return "CR1"
	case RegDIER:
		return "DIER"
	case RegSR:
		return "SR"
	case RegEGR:
		return "EGR"
	case RegCNT:
		return "CNT"
	case RegPSC:
		return "PSC"
	case RegARR:
		return "ARR"
	}
	return "?"
}

const (
	cr1Mask  = core.CR1_CEN | core.CR1_UDIS | core.CR1_URS | core.CR1_OPM | core.CR1_ARPE
	dierMask = core.DIER_UIE | core.DIER_UDE
	field16  = 0xFFFF
)

// Write is one register write as seen by the peripheral
type Write struct {
	Reg     RegID
	Value   uint32 // value on the bus
	Ignored bool   // peripheral clock was gated
	// SetUIF is true when this write caused the update flag to go high
	SetUIF bool
}

// Timer is a simulated basic timer. It implements core.TimerRegisters and
// core.ClockGate for its own peripheral ID.
type Timer struct {
	id           core.PeripheralID
	clockEnabled bool

	cr1  uint32
	dier uint32
	sr   uint32
	cnt  uint32
	psc  uint32
	arr  uint32

	pscShadow  uint32
	arrShadow  uint32
	pscCounter uint32

	updates int
	writes  []Write

	regs [7]reg
}

// New returns a timer in its reset state with the clock gated
func New(id core.PeripheralID) *Timer {
	t := &Timer{id: id}
	for i := range t.regs {
		t.regs[i] = reg{t: t, id: RegID(i)}
	}
	t.Reset()
	return t
}

// Reset puts the registers back to their reset values. The clock gate and
// the write log are left alone.
func (t *Timer) Reset() {
	t.cr1 = 0
	t.dier = 0
	t.sr = 0
	t.cnt = 0
	t.psc = 0
	t.arr = field16
	t.pscShadow = 0
	t.arrShadow = field16
	t.pscCounter = 0
	t.updates = 0
}

// EnableClock implements core.ClockGate
func (t *Timer) EnableClock(id core.PeripheralID) {
	if id == t.id {
		t.clockEnabled = true
	}
}

// DisableClock gates the peripheral clock again
func (t *Timer) DisableClock() {
	t.clockEnabled = false
}

// ClockEnabled reports whether the peripheral clock is running
func (t *Timer) ClockEnabled() bool {
	return t.clockEnabled
}

func (t *Timer) CR1() core.Register  { return &t.regs[RegCR1] }
func (t *Timer) DIER() core.Register { return &t.regs[RegDIER] }
func (t *Timer) SR() core.Register   { return &t.regs[RegSR] }
func (t *Timer) EGR() core.Register  { return &t.regs[RegEGR] }
func (t *Timer) CNT() core.Register  { return &t.regs[RegCNT] }
func (t *Timer) PSC() core.Register  { return &t.regs[RegPSC] }
func (t *Timer) ARR() core.Register  { return &t.regs[RegARR] }

// Running reports whether the counter is enabled
func (t *Timer) Running() bool {
	return t.clockEnabled && t.cr1&core.CR1_CEN != 0
}

// Pending reports whether the update flag is set
func (t *Timer) Pending() bool {
	return t.sr&core.SR_UIF != 0
}

// IRQLine reports whether the peripheral is asserting its interrupt line
func (t *Timer) IRQLine() bool {
	return t.dier&core.DIER_UIE != 0 && t.sr&core.SR_UIF != 0
}

// Updates returns the number of update events since reset
func (t *Timer) Updates() int {
	return t.updates
}

// Counter returns the counter value
func (t *Timer) Counter() uint32 {
	return t.cnt
}

// Shadows returns the prescaler and auto-reload values currently in use
func (t *Timer) Shadows() (psc, arr uint32) {
	return t.pscShadow, t.arrShadow
}

// Writes returns the write log
func (t *Timer) Writes() []Write {
	return t.writes
}

// ClearWrites empties the write log
func (t *Timer) ClearWrites() {
	t.writes = t.writes[:0]
}

// PeriodCycles returns the input clock cycles between two update events
// with the current shadow registers
func (t *Timer) PeriodCycles() uint64 {
	return (uint64(t.pscShadow) + 1) * (uint64(t.arrShadow) + 1)
}

func (t *Timer) read(id RegID) uint32 {
	if !t.clockEnabled {
		return 0
	}
	switch id {
	case RegCR1:
		return t.cr1
	case RegDIER:
		return t.dier
	case RegSR:
		return t.sr
	case RegCNT:
		return t.cnt
	case RegPSC:
		return t.psc
	case RegARR:
		return t.arr
	}
	// EGR is write-only
	return 0
}

func (t *Timer) write(id RegID, v uint32) {
	w := Write{Reg: id, Value: v}
	if !t.clockEnabled {
		w.Ignored = true
		t.writes = append(t.writes, w)
		return
	}

	pending := t.Pending()
	switch id {
	case RegCR1:
		t.cr1 = v & cr1Mask
	case RegDIER:
		t.dier = v & dierMask
	case RegSR:
		// rc_w0: writing 0 clears, writing 1 has no effect
		t.sr &= v | ^uint32(core.SR_UIF)
	case RegEGR:
		if v&core.EGR_UG != 0 {
			t.cnt = 0
			t.pscCounter = 0
			t.update(true)
		}
	case RegCNT:
		t.cnt = v & field16
	case RegPSC:
		t.psc = v & field16
	case RegARR:
		t.arr = v & field16
		if t.cr1&core.CR1_ARPE == 0 {
			t.arrShadow = t.arr
		}
	}
	w.SetUIF = !pending && t.Pending()
	t.writes = append(t.writes, w)
}

// update performs an update event. forced is true for EGR.UG.
func (t *Timer) update(forced bool) {
	if t.cr1&core.CR1_UDIS != 0 {
		return
	}
	t.updates++
	t.pscShadow = t.psc
	t.arrShadow = t.arr
	if !(forced && t.cr1&core.CR1_URS != 0) {
		t.sr |= core.SR_UIF
	}
	if t.cr1&core.CR1_OPM != 0 {
		t.cr1 &^= core.CR1_CEN
	}
}

// countTick advances the counter by one prescaled count
func (t *Timer) countTick() {
	if t.cnt >= t.arrShadow {
		t.cnt = 0
		t.update(false)
		return
	}
	t.cnt++
}

// Step advances the timer by the given number of input clock cycles
func (t *Timer) Step(cycles uint64) {
	for cycles > 0 && t.Running() {
		// ARR == 0 blocks the counter
		if t.arrShadow == 0 {
			return
		}

		div := uint64(t.pscShadow) + 1
		toTick := div - uint64(t.pscCounter)
		if cycles < toTick {
			t.pscCounter += uint32(cycles)
			return
		}
		cycles -= toTick
		t.pscCounter = 0
		t.countTick()

		if !t.Running() || t.cnt == 0 {
			continue
		}
		// whole counts that only increment CNT
		n := cycles / div
		if left := uint64(t.arrShadow - t.cnt); n > left {
			n = left
		}
		t.cnt += uint32(n)
		cycles -= n * div
	}
}

// reg adapts one simulated register to core.Register
type reg struct {
	t  *Timer
	id RegID
}

func (r *reg) Get() uint32 {
	return r.t.read(r.id)
}

func (r *reg) Set(value uint32) {
	r.t.write(r.id, value)
}

func (r *reg) SetBits(value uint32) {
	r.t.write(r.id, r.t.read(r.id)|value)
}

func (r *reg) ClearBits(value uint32) {
	r.t.write(r.id, r.t.read(r.id)&^value)
}

func (r *reg) HasBits(value uint32) bool {
	return r.t.read(r.id)&value != 0
}
