package core

// TickSnapshot is a consistent view of a TickCounter
type TickSnapshot struct {
	Ticks    uint32
	Rearms   uint32
	PeriodMs uint32
}

// UptimeMs returns the elapsed time covered by the recorded ticks
func (s TickSnapshot) UptimeMs() uint64 {
	return uint64(s.Ticks) * uint64(s.PeriodMs)
}

// TickCounter counts update interrupts on behalf of the application.
// Record runs in the ISR after the driver has acknowledged the interrupt;
// Snapshot runs in the main loop.
type TickCounter struct {
	ticks    uint32
	rearms   uint32
	periodMs uint32
}

// NewTickCounter creates a counter for ticks of periodMs milliseconds
func NewTickCounter(periodMs uint32) *TickCounter {
	return &TickCounter{periodMs: periodMs}
}

// Record counts one tick and returns the new count. ISR only.
func (c *TickCounter) Record() uint32 {
	c.ticks++
	return c.ticks
}

// RecordRearm counts one restart of a one-pulse counter and returns the
// new count. ISR only.
func (c *TickCounter) RecordRearm() uint32 {
	c.rearms++
	return c.rearms
}

// Snapshot returns the current counts with interrupts masked
func (c *TickCounter) Snapshot() TickSnapshot {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	return TickSnapshot{
		Ticks:    c.ticks,
		Rearms:   c.rearms,
		PeriodMs: c.periodMs,
	}
}

// Reset zeroes the counts
func (c *TickCounter) Reset() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	c.ticks = 0
	c.rearms = 0
}
