//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"

	"timitr/core"
)

// STM32F4 basic timer TIM6 and the RCC enable register that gates it.
// TIM6/TIM7 share the register map of the STM32F0 basic timers.
const (
	tim6Base = 0x40001000
	rccBase  = 0x40023800

	timCR1  = 0x00
	timDIER = 0x0C
	timSR   = 0x10
	timEGR  = 0x14
	timCNT  = 0x24
	timPSC  = 0x28
	timARR  = 0x2C

	rccAPB1ENR        = rccBase + 0x40
	rccAPB1ENR_TIM6EN = 1 << 4
	rccAPB1ENR_TIM7EN = 1 << 5

	// TIM6_DAC global interrupt
	irqTIM6DAC = 54
)

func timReg(base, offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(base + offset))
}

// basicTimer exposes the memory-mapped registers of one basic timer
type basicTimer struct {
	cr1, dier, sr, egr, cnt, psc, arr *volatile.Register32
}

func newBasicTimer(base uintptr) *basicTimer {
	return &basicTimer{
		cr1:  timReg(base, timCR1),
		dier: timReg(base, timDIER),
		sr:   timReg(base, timSR),
		egr:  timReg(base, timEGR),
		cnt:  timReg(base, timCNT),
		psc:  timReg(base, timPSC),
		arr:  timReg(base, timARR),
	}
}

func (t *basicTimer) CR1() core.Register  { return t.cr1 }
func (t *basicTimer) DIER() core.Register { return t.dier }
func (t *basicTimer) SR() core.Register   { return t.sr }
func (t *basicTimer) EGR() core.Register  { return t.egr }
func (t *basicTimer) CNT() core.Register  { return t.cnt }
func (t *basicTimer) PSC() core.Register  { return t.psc }
func (t *basicTimer) ARR() core.Register  { return t.arr }

// start sets CEN. The driver never does this itself.
func (t *basicTimer) start() {
	t.cr1.SetBits(core.CR1_CEN)
}

var apb1ENR = (*volatile.Register32)(unsafe.Pointer(uintptr(rccAPB1ENR)))

// enableClock is the RCC side of core.ClockGate
func enableClock(id core.PeripheralID) {
	switch id {
	case core.PeripheralTIM6:
		apb1ENR.SetBits(rccAPB1ENR_TIM6EN)
	case core.PeripheralTIM7:
		apb1ENR.SetBits(rccAPB1ENR_TIM7EN)
	}
	// dummy read: the enable takes two AHB cycles to reach the peripheral
	_ = apb1ENR.Get()
}
