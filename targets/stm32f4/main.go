//go:build stm32f4

package main

import (
	"machine"
	"runtime/interrupt"
	"sync/atomic"
	"time"

	"timitr/core"
	"timitr/protocol"
)

// Firmware configuration
const (
	periodMs    = 10
	timerMode   = core.ModeOnePulse
	reportEvery = 100 // ticks per tick_report
	configEvery = 10  // tick_reports per repeated timer_config
	debugTimer  = false
	irqPriority = 0xC0
)

var (
	tim6   = newBasicTimer(tim6Base)
	driver = core.NewPeriodicTimer(tim6, core.ClockGateFunc(enableClock), core.TimerConfig{
		Peripheral: core.PeripheralTIM6,
		InputHz:    timClockHz,
		Mode:       timerMode,
	})
	ticks = core.NewTickCounter(periodMs)

	// set by the ISR, consumed by the main loop
	tickPending uint32

	output = protocol.NewScratchOutput()
	seq    uint8
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(debugTimer)

	driver.Init(periodMs)
	driver.DumpRegisters()
	sendConfig()

	// NVIC setup and starting the counter belong to the caller, after
	// the driver has cleared any stale update flag
	intr := interrupt.New(irqTIM6DAC, handleTIM6)
	intr.SetPriority(irqPriority)
	intr.Enable()

	tim6.start()
	core.RecordEvent(core.EvtStart, 0, periodMs)

	var lastReport, reports uint32
	for {
		if atomic.SwapUint32(&tickPending, 0) != 0 {
			s := ticks.Snapshot()
			if s.Ticks-lastReport >= reportEvery {
				lastReport = s.Ticks
				sendReport(s)
				reports++
				if reports%configEvery == 0 {
					sendConfig()
					if debugTimer {
						core.DumpEvents()
					}
				}
			}
		}
		time.Sleep(time.Millisecond)
	}
}

// handleTIM6 is the TIM6_DAC interrupt handler
func handleTIM6(interrupt.Interrupt) {
	driver.OnInterrupt()
	n := ticks.Record()
	core.RecordEvent(core.EvtTick, n, 0)

	if timerMode == core.ModeOnePulse {
		// OPM cleared CEN at the update event
		tim6.start()
		core.RecordEvent(core.EvtRearm, n, ticks.RecordRearm())
	}
	atomic.StoreUint32(&tickPending, 1)
}

func sendConfig() {
	output.Reset()
	protocol.EncodeTimerConfig(output, nextSeq(), protocol.TimerConfig{
		PeriodMs:   driver.PeriodMs(),
		Mode:       uint8(driver.Mode()),
		Prescaler:  tim6.PSC().Get(),
		AutoReload: tim6.ARR().Get(),
	})
	machine.Serial.Write(output.Result())
}

func sendReport(s core.TickSnapshot) {
	output.Reset()
	protocol.EncodeTickReport(output, nextSeq(), protocol.TickReport{
		Ticks:  s.Ticks,
		Rearms: s.Rearms,
		Clock:  clockMicros(),
	})
	machine.Serial.Write(output.Result())
	core.RecordEvent(core.EvtReport, s.Ticks, s.Rearms)
}

func nextSeq() uint8 {
	s := seq
	seq = (seq + 1) & protocol.MessageSeqMask
	return s
}
