//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so the tick ISR cannot run between
// reads of fields it updates
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
