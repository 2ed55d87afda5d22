package protocol

import (
	"errors"
	"testing"
)

func TestVLQEncodeDecode(t *testing.T) {
	testCases := []int32{0, 1, -1, 31, 32, 95, 96, -32, -33, 127, 128, 2399, 65520, 1000000, -1000000, 1 << 30}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode left %d bytes for value %d", len(data), expected)
		}
	}
}

func TestVLQKnownEncodings(t *testing.T) {
	testCases := []struct {
		value    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{2000, []byte{0x8F, 0x50}},
	}

	for _, tc := range testCases {
		output := NewScratchOutput()
		EncodeVLQUint(output, tc.value)
		got := output.Result()
		if string(got) != string(tc.expected) {
			t.Errorf("EncodeVLQUint(%d) = % X, expected % X", tc.value, got, tc.expected)
		}
	}
}

func TestVLQTruncated(t *testing.T) {
	data := []byte{0x8F}
	if _, err := DecodeVLQUint(&data); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("expected ErrBufferTooSmall, got %v", err)
	}

	empty := []byte{}
	if _, err := DecodeVLQUint(&empty); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("expected ErrBufferTooSmall, got %v", err)
	}

	long := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQUint(&long); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("expected ErrInvalidVLQ, got %v", err)
	}
}

func TestCRC16(t *testing.T) {
	if CRC16(nil) != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X", CRC16(nil))
	}
	// CRC-16/MCRF4XX check value
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("CRC16(check) = 0x%04X, expected 0x6F91", got)
	}

	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if CRC16Update(CRC16(data[:2]), data[2:]) != CRC16(data) {
		t.Error("incremental CRC differs")
	}
}
