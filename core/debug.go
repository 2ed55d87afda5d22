package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Timer event codes for the event ring
const (
	EvtInit   = 1 // driver initialised
	EvtStart  = 2 // counter started by the caller
	EvtTick   = 3 // update interrupt acknowledged
	EvtRearm  = 4 // one-pulse counter restarted
	EvtReport = 5 // tick report sent
)

const EventRingSize = 16

// Event is one entry of the post-mortem event ring
type Event struct {
	Type  uint8
	Ticks uint32
	Value uint32
}

var (
	debugPrintln DebugWriter = func(s string) {}
	debugEnabled bool

	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring. Safe to call from an ISR.
func RecordEvent(typ uint8, ticks, value uint32) {
	idx := eventRingHead
	eventRing[idx] = Event{Type: typ, Ticks: ticks, Value: value}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// DumpEvents writes the event ring through the debug writer
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVT] === Event Ring Dump ===")
	for _, evt := range Events() {
		var name string
		switch evt.Type {
		case EvtInit:
			name = "INIT"
		case EvtStart:
			name = "START"
		case EvtTick:
			name = "TICK"
		case EvtRearm:
			name = "REARM"
		case EvtReport:
			name = "REPORT"
		default:
			name = "UNKNOWN"
		}
		debugPrintln("[EVT] " + name + " ticks=" + utoa(evt.Ticks) + " v=" + utoa(evt.Value))
	}
	debugPrintln("[EVT] === End Dump ===")
}

// ClearEvents empties the event ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
