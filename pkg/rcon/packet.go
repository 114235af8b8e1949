// Package rcon implements the Source remote-console wire protocol as
// Palworld speaks it: framed little-endian packets over TCP, a one-shot
// password handshake, and serialized request/response exchanges.
package rcon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Packet type tags defined by the Source RCON wire format. Palworld keeps
// Source's numbering: the auth response and the command request share code
// 2 and are told apart by direction.
const (
	TypeResponseValue int32 = 0
	TypeAuthResponse  int32 = 2
	TypeExecCommand   int32 = 2
	TypeAuth          int32 = 3
)

const (
	// headerSize covers the id and type fields plus the two trailing
	// NULs: every framed byte except the body and the length prefix
	// itself.
	headerSize = 4 + 4 + 2

	// MaxFrameSize caps the declared length field. Source servers refuse
	// anything larger, and it bounds what Decode will allocate for a
	// hostile length prefix.
	MaxFrameSize = 4096

	// MaxBodySize is the largest body Encode accepts.
	MaxBodySize = MaxFrameSize - headerSize
)

// Packet is one RCON frame, request or response.
type Packet struct {
	// ID correlates responses to requests. Servers echo it back, except
	// on failed auth where the response carries -1.
	ID int32

	// Type is one of the Type* constants.
	Type int32

	// Body is the command or response text. It must not contain NUL:
	// the frame's own terminators are the only NULs on the wire.
	Body []byte
}

// Encode renders p as a little-endian frame:
//
//	[int32 length][int32 id][int32 type][body][0x00][0x00]
//
// where length counts everything after itself.
func Encode(p Packet) ([]byte, error) {
	if i := bytes.IndexByte(p.Body, 0); i >= 0 {
		return nil, fmt.Errorf("%w: NUL at body offset %d", ErrInvalidPayload, i)
	}
	if len(p.Body) > MaxBodySize {
		return nil, fmt.Errorf("%w: body of %d bytes exceeds %d", ErrInvalidPayload, len(p.Body), MaxBodySize)
	}

	length := headerSize + len(p.Body)
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], p.Body)
	// The two terminator bytes are already zero.
	return buf, nil
}

// Decode parses one frame from the front of buf. It returns the packet and
// the number of bytes consumed, leaving any following frames untouched. A
// buffer that ends mid-frame yields ErrIncomplete so a stream reader can
// fetch more bytes and retry; structural violations yield ErrInvalidFrame.
func Decode(buf []byte) (Packet, int, error) {
	if len(buf) < 4 {
		return Packet{}, 0, ErrIncomplete
	}
	length := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if length < headerSize {
		return Packet{}, 0, fmt.Errorf("%w: declared length %d below minimum %d", ErrInvalidFrame, length, headerSize)
	}
	if length > MaxFrameSize {
		return Packet{}, 0, fmt.Errorf("%w: declared length %d above maximum %d", ErrInvalidFrame, length, MaxFrameSize)
	}
	total := 4 + int(length)
	if len(buf) < total {
		return Packet{}, 0, ErrIncomplete
	}
	if buf[total-2] != 0 || buf[total-1] != 0 {
		return Packet{}, 0, fmt.Errorf("%w: missing double NUL terminator", ErrInvalidFrame)
	}

	p := Packet{
		ID:   int32(binary.LittleEndian.Uint32(buf[4:8])),
		Type: int32(binary.LittleEndian.Uint32(buf[8:12])),
	}
	if n := int(length) - headerSize; n > 0 {
		p.Body = make([]byte, n)
		copy(p.Body, buf[12:12+n])
	}
	return p, total, nil
}

// ReadPacket reads exactly one frame from r, blocking until it arrives or
// r fails. The read is length-first, so a well-formed stream is never
// consumed past the frame boundary.
func ReadPacket(r io.Reader) (Packet, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return Packet{}, err
	}
	length := int32(binary.LittleEndian.Uint32(head))
	if length < headerSize || length > MaxFrameSize {
		return Packet{}, fmt.Errorf("%w: declared length %d", ErrInvalidFrame, length)
	}

	frame := make([]byte, 4+int(length))
	copy(frame, head)
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return Packet{}, err
	}
	p, _, err := Decode(frame)
	return p, err
}

// WritePacket encodes p and writes the whole frame to w.
func WritePacket(w io.Writer, p Packet) error {
	frame, err := Encode(p)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}
