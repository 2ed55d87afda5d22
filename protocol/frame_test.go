package protocol

import (
	"errors"
	"testing"
)

func encodeReport(seq uint8, r TickReport) []byte {
	out := NewScratchOutput()
	EncodeTickReport(out, seq, r)
	return append([]byte(nil), out.Result()...)
}

func TestFrameRoundTrip(t *testing.T) {
	report := TickReport{Ticks: 1234, Rearms: 1234, Clock: 0xDEADBEEF}
	frame := encodeReport(3, report)

	if int(frame[0]) != len(frame) {
		t.Errorf("length byte %d, frame is %d bytes", frame[0], len(frame))
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("last byte 0x%02X", frame[len(frame)-1])
	}

	seq, payload, n, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if seq != 3 || n != len(frame) {
		t.Errorf("seq=%d n=%d", seq, n)
	}

	msg, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.ID != MsgTickReport || msg.Report == nil || *msg.Report != report {
		t.Errorf("decoded %+v", msg)
	}
}

func TestTimerConfigMessage(t *testing.T) {
	cfg := TimerConfig{PeriodMs: 3276, Mode: 1, Prescaler: 2399, AutoReload: 65520}
	out := NewScratchOutput()
	EncodeTimerConfig(out, 0, cfg)

	_, payload, _, err := DecodeFrame(out.Result())
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	msg, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Config == nil || *msg.Config != cfg {
		t.Errorf("decoded %+v", msg.Config)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	good := encodeReport(0, TickReport{Ticks: 7})

	badCRC := append([]byte(nil), good...)
	badCRC[2] ^= 0xFF
	badSync := append([]byte(nil), good...)
	badSync[len(badSync)-1] = 0
	badDest := append([]byte(nil), good...)
	badDest[1] = 0x20

	testCases := []struct {
		name string
		data []byte
		err  error
	}{
		{"short", good[:3], ErrShortFrame},
		{"partial", good[:len(good)-1], ErrShortFrame},
		{"crc", badCRC, ErrFrameCRC},
		{"sync", badSync, ErrFrameSync},
		{"dest", badDest, ErrFrameDest},
		{"length", []byte{2, MessageDest, 0, 0, MessageValueSync}, ErrFrameLength},
	}

	for _, tc := range testCases {
		_, _, _, err := DecodeFrame(tc.data)
		if !errors.Is(err, tc.err) {
			t.Errorf("%s: got %v, expected %v", tc.name, err, tc.err)
		}
	}
}

func TestScannerResync(t *testing.T) {
	first := encodeReport(0, TickReport{Ticks: 1})
	second := encodeReport(1, TickReport{Ticks: 2})
	corrupt := encodeReport(2, TickReport{Ticks: 3})
	corrupt[3] ^= 0x55

	var stream []byte
	stream = append(stream, 0x00, 0x42, MessageValueSync) // line noise
	stream = append(stream, first...)
	stream = append(stream, corrupt...)
	stream = append(stream, second...)

	var s Scanner
	// feed in small pieces to exercise partial blocks
	var got []uint32
	for i := 0; i < len(stream); i += 4 {
		end := i + 4
		if end > len(stream) {
			end = len(stream)
		}
		s.Feed(stream[i:end])
		for {
			_, payload, ok := s.Next()
			if !ok {
				break
			}
			msg, err := DecodeMessage(payload)
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			got = append(got, msg.Report.Ticks)
		}
	}

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got ticks %v, expected [1 2]", got)
	}
	if s.Errors() == 0 {
		t.Error("expected scanner errors for noise and corrupt block")
	}
	t.Logf("errors=%d dropped=%d", s.Errors(), s.Dropped())
}

func TestDecodeUnknownMessage(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQUint(out, 42)
	if _, err := DecodeMessage(out.Result()); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("expected ErrUnknownMessage, got %v", err)
	}
}
