package protocol

import "errors"

var (
	ErrFrameLength = errors.New("bad message length")
	ErrFrameDest   = errors.New("bad message destination")
	ErrFrameSync   = errors.New("missing sync byte")
	ErrFrameCRC    = errors.New("message CRC mismatch")
	ErrShortFrame  = errors.New("incomplete message")
)

// EncodeFrame writes one message block with sequence seq around the payload
// produced by body
func EncodeFrame(output OutputBuffer, seq uint8, body func(output OutputBuffer)) {
	cursor := output.CurPosition()
	output.Output([]byte{0, MessageDest | (seq & MessageSeqMask)})

	body(output)

	length := len(output.DataSince(cursor)) + MessageTrailerSize
	output.Update(cursor+MessagePositionLen, uint8(length))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// DecodeFrame checks the message block at the start of data and returns
// its sequence number, its payload and the number of bytes it occupies
func DecodeFrame(data []byte) (seq uint8, payload []byte, n int, err error) {
	if len(data) < MessageLengthMin {
		return 0, nil, 0, ErrShortFrame
	}
	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return 0, nil, 0, ErrFrameLength
	}
	s := data[MessagePositionSeq]
	if s&^MessageSeqMask != MessageDest {
		return 0, nil, 0, ErrFrameDest
	}
	if len(data) < msgLen {
		return 0, nil, 0, ErrShortFrame
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return 0, nil, 0, ErrFrameSync
	}
	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return 0, nil, 0, ErrFrameCRC
	}
	return s & MessageSeqMask, data[MessageHeaderSize : msgLen-MessageTrailerSize], msgLen, nil
}

// Scanner pulls message blocks out of a byte stream. After a bad block it
// drops bytes up to the next sync byte and tries again.
type Scanner struct {
	buf     []byte
	dropped int
	errs    int
}

// Feed appends received bytes
func (s *Scanner) Feed(data []byte) {
	s.buf = append(s.buf, data...)
}

// Next returns the next complete payload. ok is false when more bytes are
// needed.
func (s *Scanner) Next() (seq uint8, payload []byte, ok bool) {
	for {
		// leading sync bytes separate blocks
		for len(s.buf) > 0 && s.buf[0] == MessageValueSync {
			s.buf = s.buf[1:]
		}

		seq, p, n, err := DecodeFrame(s.buf)
		switch {
		case err == nil:
			payload = append([]byte(nil), p...)
			s.buf = s.buf[n:]
			return seq, payload, true
		case errors.Is(err, ErrShortFrame):
			return 0, nil, false
		}

		s.errs++
		s.resync()
	}
}

func (s *Scanner) resync() {
	for i, b := range s.buf {
		if b == MessageValueSync {
			s.dropped += i + 1
			s.buf = s.buf[i+1:]
			return
		}
	}
	s.dropped += len(s.buf)
	s.buf = s.buf[:0]
}

// Errors returns the number of bad blocks seen
func (s *Scanner) Errors() int {
	return s.errs
}

// Dropped returns the number of bytes discarded while resynchronising
func (s *Scanner) Dropped() int {
	return s.dropped
}
