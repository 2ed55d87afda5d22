// Package protocol frames the tick reports the firmware streams to the host.
// Framing follows the Klipper message block: length, sequence, VLQ payload,
// CRC16 and a trailing sync byte.
package protocol

// Message block layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Message IDs carried as the first VLQ of a payload
const (
	MsgTimerConfig = 0
	MsgTickReport  = 1
)
