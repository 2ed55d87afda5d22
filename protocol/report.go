package protocol

import "errors"

var ErrUnknownMessage = errors.New("unknown message id")

// TimerConfig describes how the firmware programmed its timer
type TimerConfig struct {
	PeriodMs   uint32
	Mode       uint8
	Prescaler  uint32
	AutoReload uint32
}

// TickReport is the periodic status the firmware streams
type TickReport struct {
	Ticks  uint32 // update interrupts since boot
	Rearms uint32 // one-pulse restarts since boot
	Clock  uint32 // free-running microsecond clock when the report was built
}

// EncodeTimerConfig writes a timer_config message block
func EncodeTimerConfig(output OutputBuffer, seq uint8, c TimerConfig) {
	EncodeFrame(output, seq, func(out OutputBuffer) {
		EncodeVLQUint(out, MsgTimerConfig)
		EncodeVLQUint(out, c.PeriodMs)
		EncodeVLQUint(out, uint32(c.Mode))
		EncodeVLQUint(out, c.Prescaler)
		EncodeVLQUint(out, c.AutoReload)
	})
}

// EncodeTickReport writes a tick_report message block
func EncodeTickReport(output OutputBuffer, seq uint8, r TickReport) {
	EncodeFrame(output, seq, func(out OutputBuffer) {
		EncodeVLQUint(out, MsgTickReport)
		EncodeVLQUint(out, r.Ticks)
		EncodeVLQUint(out, r.Rearms)
		EncodeVLQUint(out, r.Clock)
	})
}

// Message is a decoded payload. Exactly one of Config and Report is set.
type Message struct {
	ID     uint32
	Config *TimerConfig
	Report *TickReport
}

// DecodeMessage decodes a message block payload
func DecodeMessage(payload []byte) (Message, error) {
	id, err := DecodeVLQUint(&payload)
	if err != nil {
		return Message{}, err
	}

	var vals [4]uint32
	var n int
	switch id {
	case MsgTimerConfig:
		n = 4
	case MsgTickReport:
		n = 3
	default:
		return Message{ID: id}, ErrUnknownMessage
	}
	for i := 0; i < n; i++ {
		if vals[i], err = DecodeVLQUint(&payload); err != nil {
			return Message{ID: id}, err
		}
	}

	m := Message{ID: id}
	if id == MsgTimerConfig {
		m.Config = &TimerConfig{
			PeriodMs:   vals[0],
			Mode:       uint8(vals[1]),
			Prescaler:  vals[2],
			AutoReload: vals[3],
		}
	} else {
		m.Report = &TickReport{
			Ticks:  vals[0],
			Rearms: vals[1],
			Clock:  vals[2],
		}
	}
	return m, nil
}
