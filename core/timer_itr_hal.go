package core

// Register gives read/write access to one 32-bit peripheral register.
// It matches the method set of TinyGo's runtime/volatile.Register32, so a
// target can hand real memory-mapped registers straight to the driver.
type Register interface {
	Get() uint32
	Set(value uint32)
	SetBits(value uint32)
	ClearBits(value uint32)
	HasBits(value uint32) bool
}

// TimerRegisters is the register block of a single basic timer (TIMx).
// Implementations must return the same Register on every call.
type TimerRegisters interface {
	CR1() Register  // control register 1
	DIER() Register // DMA/interrupt enable register
	SR() Register   // status register
	EGR() Register  // event generation register
	CNT() Register  // counter
	PSC() Register  // prescaler
	ARR() Register  // auto-reload register
}

// PeripheralID identifies a peripheral to the clock controller
type PeripheralID uint8

const (
	PeripheralTIM6 PeripheralID = 6
	PeripheralTIM7 PeripheralID = 7
)

// ClockGate is the platform clock controller. EnableClock must be called
// before any register of the peripheral is touched.
type ClockGate interface {
	EnableClock(id PeripheralID)
}

// ClockGateFunc adapts a plain function to ClockGate
type ClockGateFunc func(id PeripheralID)

// EnableClock calls f(id)
func (f ClockGateFunc) EnableClock(id PeripheralID) {
	f(id)
}
