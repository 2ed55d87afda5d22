//go:build stm32f4

package main

import "time"

// Clock tree as configured by the TinyGo stm32f4 runtime: SYSCLK 168MHz,
// APB1 42MHz. APB1 timers run at twice PCLK1 when the APB1 prescaler is not 1.
const (
	sysClockHz  = 168000000
	apb1ClockHz = 42000000
	timClockHz  = apb1ClockHz * 2
)

var bootTime = time.Now()

// clockMicros returns the free-running microsecond clock sent in reports
func clockMicros() uint32 {
	return uint32(time.Since(bootTime) / time.Microsecond)
}
