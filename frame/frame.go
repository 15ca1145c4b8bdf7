// Package frame defines the data-link frame exchanged by two sliding window
// protocol engines, and its binary wire encoding.
//
// A frame on the wire is:
//
//	[Kind(1)][Seq(1)][Ack(1)][InfoLen(2)][Info(0-65535)][Checksum(2)]
//
// All multi-byte fields are big endian. The checksum is the arithmetic sum of
// every preceding byte, truncated to 16 bits.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arloliu/go-swp/internal/util"
	"github.com/arloliu/go-swp/seqnum"
)

// HeaderSize is the fixed size of the frame header (kind, seq, ack, info length).
const HeaderSize = 5

// ChecksumSize is the size of the trailing checksum in bytes.
const ChecksumSize = 2

// MaxInfoSize is the maximum number of payload bytes a single frame can carry.
const MaxInfoSize = 0xFFFF

// MinFrameSize is the size of a frame without payload.
const MinFrameSize = HeaderSize + ChecksumSize

var (
	// ErrShortFrame indicates that fewer than MinFrameSize bytes were received.
	ErrShortFrame = errors.New("frame: short frame")
	// ErrLengthMismatch indicates that the info length field does not match the received size.
	ErrLengthMismatch = errors.New("frame: info length mismatch")
	// ErrInvalidKind indicates an unknown frame kind.
	ErrInvalidKind = errors.New("frame: invalid frame kind")
	// ErrChecksumMismatch indicates that the frame was corrupted in transit.
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	// ErrInfoTooLarge indicates that a payload exceeds MaxInfoSize.
	ErrInfoTooLarge = errors.New("frame: info exceeds maximum size")
)

// Kind is the frame kind.
type Kind uint8

const (
	// Data frames carry a packet and a piggybacked acknowledgement.
	Data Kind = iota
	// Ack frames are standalone acknowledgements.
	Ack
	// Nak frames request selective retransmission of the frame after Ack.
	Nak
)

// String returns the kind name as printed in frame logs.
func (k Kind) String() string {
	switch k {
	case Data:
		return "DATA"
	case Ack:
		return "ACK"
	case Nak:
		return "NAK"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsValid reports whether k is one of the defined kinds.
func (k Kind) IsValid() bool {
	return k <= Nak
}

// Packet is an opaque upper-layer payload.
type Packet []byte

// Clone returns a deep copy of the packet.
func (p Packet) Clone() Packet {
	return Packet(util.CloneSlice([]byte(p), 0))
}

// Frame is a data-link frame.
//
// Seq is only meaningful for Data frames. Ack always carries the piggybacked
// cumulative acknowledgement. Info is only carried by Data frames.
type Frame struct {
	Kind Kind
	Seq  seqnum.Seq
	Ack  seqnum.Seq
	Info Packet
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("%s seq=%d ack=%d info=%d bytes", f.Kind, f.Seq, f.Ack, len(f.Info))
}

// Checksum computes the 16-bit checksum over header and info.
func (f *Frame) Checksum() uint16 {
	var hdr [HeaderSize]byte
	f.putHeader(hdr[:])

	var sum uint32
	for _, v := range hdr {
		sum += uint32(v)
	}
	for _, v := range f.Info {
		sum += uint32(v)
	}

	return uint16(sum & 0xFFFF) //nolint:gosec // intentional truncation
}

func (f *Frame) putHeader(buf []byte) {
	buf[0] = byte(f.Kind)
	buf[1] = byte(f.Seq)
	buf[2] = byte(f.Ack)
	binary.BigEndian.PutUint16(buf[3:5], uint16(len(f.Info))) //nolint:gosec // bounded by MaxInfoSize
}

// Pack serializes the frame to its wire format.
//
// It returns ErrInfoTooLarge if the payload cannot be described by the
// 16-bit info length field.
func (f *Frame) Pack() ([]byte, error) {
	if len(f.Info) > MaxInfoSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInfoTooLarge, len(f.Info))
	}

	wireLen := HeaderSize + len(f.Info) + ChecksumSize
	buf := make([]byte, wireLen)

	f.putHeader(buf)
	copy(buf[HeaderSize:], f.Info)
	binary.BigEndian.PutUint16(buf[wireLen-ChecksumSize:], f.Checksum())

	return buf, nil
}

// Parse deserializes a frame from its wire format.
//
// Parse validates the size, the info length field, the checksum and the
// frame kind. The returned frame owns a copy of the payload.
func Parse(data []byte) (*Frame, error) {
	if len(data) < MinFrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, want >= %d", ErrShortFrame, len(data), MinFrameSize)
	}

	infoLen := int(binary.BigEndian.Uint16(data[3:5]))
	if HeaderSize+infoLen+ChecksumSize != len(data) {
		return nil, fmt.Errorf("%w: info length %d, frame size %d", ErrLengthMismatch, infoLen, len(data))
	}

	f := &Frame{
		Kind: Kind(data[0]),
		Seq:  seqnum.Seq(data[1]),
		Ack:  seqnum.Seq(data[2]),
	}
	if infoLen > 0 {
		f.Info = Packet(util.CloneSlice(data[HeaderSize:HeaderSize+infoLen], 0))
	}

	wireChecksum := binary.BigEndian.Uint16(data[len(data)-ChecksumSize:])
	calcChecksum := f.Checksum()
	if wireChecksum != calcChecksum {
		return nil, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrChecksumMismatch, wireChecksum, calcChecksum)
	}

	if !f.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, uint8(f.Kind))
	}

	return f, nil
}
