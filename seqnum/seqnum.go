// Package seqnum implements the circular sequence-number arithmetic used by the
// sliding window protocol.
//
// Sequence numbers live in the range [0, MaxSeq] and wrap modulo MaxSeq+1.
// The window size (NR_BUFS) is half of the sequence space, which is what keeps
// a frame from the previous window from being mistaken for one of the current
// window after wraparound.
//
// All computations are carried out in int so that the uint8 representation of
// a Seq never overflows into the modulus.
package seqnum

import "fmt"

// Seq is a sequence number. A sequence space can hold at most 256 values so a
// sequence number always fits one wire byte.
type Seq uint8

// MaxModulus is the largest supported sequence space size.
const MaxModulus = 256

// Space describes a circular sequence space [0, MaxSeq].
type Space struct {
	maxSeq  Seq
	modulus int
}

// NewSpace returns the sequence space [0, maxSeq].
//
// maxSeq+1 must be even and at least 2, so that the window size (maxSeq+1)/2
// is a positive integer.
func NewSpace(maxSeq Seq) (Space, error) {
	modulus := int(maxSeq) + 1
	if modulus < 2 || modulus%2 != 0 {
		return Space{}, fmt.Errorf("seqnum: sequence space size %d must be even and >= 2", modulus)
	}

	return Space{maxSeq: maxSeq, modulus: modulus}, nil
}

// MustSpace is like NewSpace but panics on an invalid maxSeq.
func MustSpace(maxSeq Seq) Space {
	s, err := NewSpace(maxSeq)
	if err != nil {
		panic(err)
	}

	return s
}

// MaxSeq returns the largest sequence number of the space.
func (s Space) MaxSeq() Seq { return s.maxSeq }

// Modulus returns the number of sequence numbers in the space (MaxSeq+1).
func (s Space) Modulus() int { return s.modulus }

// WindowSize returns the window size NR_BUFS = (MaxSeq+1)/2.
func (s Space) WindowSize() int { return s.modulus / 2 }

// Inc returns n+1 modulo the space size.
func (s Space) Inc(n Seq) Seq {
	return Seq((int(n) + 1) % s.modulus)
}

// Add returns n+k modulo the space size. k may be negative.
func (s Space) Add(n Seq, k int) Seq {
	v := (int(n) + k) % s.modulus
	if v < 0 {
		v += s.modulus
	}

	return Seq(v)
}

// Prev returns (n + MaxSeq) mod (MaxSeq+1), the sequence number one behind n.
//
// This is the piggyback encoding: a frame carrying ack = Prev(frameExpected)
// acknowledges every frame up to but not including frameExpected.
func (s Space) Prev(n Seq) Seq {
	return Seq((int(n) + int(s.maxSeq)) % s.modulus)
}

// Distance returns the number of increments needed to go from a to b.
func (s Space) Distance(a, b Seq) int {
	return ((int(b)-int(a))%s.modulus + s.modulus) % s.modulus
}

// Slot returns the buffer slot n % NR_BUFS used by the window buffer pools.
func (s Space) Slot(n Seq) int {
	return int(n) % s.WindowSize()
}

// Contains reports whether n is a valid sequence number of the space.
func (s Space) Contains(n Seq) bool {
	return int(n) < s.modulus
}

// Between reports whether b lies in the circular interval [a, c).
//
// Going clockwise from a, b must be reached before c. Equal bounds describe an
// empty interval, so Between(a, b, a) is false for every b.
func Between(a, b, c Seq) bool {
	return (a <= b && b < c) || (c < a && a <= b) || (b < c && c < a)
}
