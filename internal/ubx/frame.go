// Package ubx implements the u-blox UBX binary protocol: frame encoding and
// validation, polled request/response exchange over a serial link, and
// decoding of the navigation payloads this driver uses.
package ubx

import (
	"encoding/binary"
	"errors"
)

// UBX sync characters and the message identities this driver polls.
const (
	Sync1 byte = 0xB5
	Sync2 byte = 0x62

	ClassNAV byte = 0x01

	IDNavPosLLH byte = 0x02 // NAV-POSLLH: geodetic position
	IDNavSVInfo byte = 0x30 // NAV-SVINFO: satellite tracking (legacy)
	IDNavSat    byte = 0x35 // NAV-SAT: satellite tracking (current)
)

// frameOverhead is sync(2) + class(1) + id(1) + length(2) + checksum(2).
const frameOverhead = 8

// maxPayloadLen is the largest payload representable in the 16-bit length field.
const maxPayloadLen = 0xFFFF

// ErrPayloadTooLarge is returned by EncodeFrame when the payload size cannot
// be represented in the frame's 16-bit length field.
var ErrPayloadTooLarge = errors.New("ubx: payload exceeds 65535 bytes")

// Message is a validated UBX frame: class, id and payload with the sync
// marker, length field and checksum already verified and stripped.
type Message struct {
	Class   byte
	ID      byte
	Payload []byte
}

// EncodeFrame builds a complete UBX frame:
//
//	<0xB5> <0x62> <class> <id> <len_lo> <len_hi> <payload...> <ck_a> <ck_b>
//
// The checksum covers class through payload, not the sync characters.
func EncodeFrame(class, id byte, payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, ErrPayloadTooLarge
	}

	frame := make([]byte, 0, frameOverhead+len(payload))
	frame = append(frame, Sync1, Sync2, class, id)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)

	ckA, ckB := Checksum(frame[2:])
	frame = append(frame, ckA, ckB)
	return frame, nil
}

// DecodeFrame validates buf as a single UBX frame starting at offset 0 and
// returns the decoded message. The second return is false when buf does not
// hold a valid frame; sync mismatch, truncation and checksum mismatch are
// deliberately not distinguished.
//
// Only the bytes of one read are considered: a frame split across two reads
// fails here, and anything following the first complete frame in buf is
// discarded. The poll loop absorbs both cases as a missed attempt.
func DecodeFrame(buf []byte) (Message, bool) {
	if len(buf) < frameOverhead {
		return Message{}, false
	}
	if buf[0] != Sync1 || buf[1] != Sync2 {
		return Message{}, false
	}

	length := int(binary.LittleEndian.Uint16(buf[4:6]))
	if len(buf) < frameOverhead+length {
		return Message{}, false
	}

	payload := buf[6 : 6+length]
	ckA, ckB := Checksum(buf[2 : 6+length])
	if ckA != buf[6+length] || ckB != buf[7+length] {
		return Message{}, false
	}

	msg := Message{
		Class:   buf[2],
		ID:      buf[3],
		Payload: append([]byte(nil), payload...),
	}
	return msg, true
}
