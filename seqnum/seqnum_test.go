package seqnum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpace(t *testing.T) {
	s, err := NewSpace(7)
	require.NoError(t, err)
	assert.Equal(t, Seq(7), s.MaxSeq())
	assert.Equal(t, 8, s.Modulus())
	assert.Equal(t, 4, s.WindowSize())

	s, err = NewSpace(255)
	require.NoError(t, err)
	assert.Equal(t, 256, s.Modulus())
	assert.Equal(t, 128, s.WindowSize())

	_, err = NewSpace(0)
	require.Error(t, err)

	_, err = NewSpace(6)
	require.Error(t, err)

	assert.Panics(t, func() { MustSpace(4) })
}

func TestSpace_Inc(t *testing.T) {
	s := MustSpace(7)

	assert.Equal(t, Seq(1), s.Inc(0))
	assert.Equal(t, Seq(7), s.Inc(6))
	assert.Equal(t, Seq(0), s.Inc(7))

	big := MustSpace(255)
	assert.Equal(t, Seq(0), big.Inc(255))
}

func TestSpace_Add(t *testing.T) {
	s := MustSpace(7)

	assert.Equal(t, Seq(4), s.Add(0, 4))
	assert.Equal(t, Seq(2), s.Add(6, 4))
	assert.Equal(t, Seq(7), s.Add(1, -2))
	assert.Equal(t, Seq(3), s.Add(3, 16))
}

func TestSpace_Prev(t *testing.T) {
	s := MustSpace(7)

	// ack field piggybacked when frame_expected is 0 wraps to MAX_SEQ
	assert.Equal(t, Seq(7), s.Prev(0))
	assert.Equal(t, Seq(0), s.Prev(1))
	assert.Equal(t, Seq(6), s.Prev(7))

	big := MustSpace(255)
	assert.Equal(t, Seq(255), big.Prev(0))
	assert.Equal(t, Seq(254), big.Prev(255))
}

func TestSpace_Distance(t *testing.T) {
	s := MustSpace(7)

	assert.Equal(t, 0, s.Distance(3, 3))
	assert.Equal(t, 4, s.Distance(0, 4))
	assert.Equal(t, 3, s.Distance(6, 1))
	assert.Equal(t, 7, s.Distance(1, 0))
}

func TestSpace_Slot(t *testing.T) {
	s := MustSpace(7)

	for n := Seq(0); n <= 7; n++ {
		assert.Equal(t, int(n)%4, s.Slot(n))
	}
	assert.True(t, s.Contains(7))
	assert.False(t, s.Contains(8))
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Seq
		want    bool
	}{
		{"plain inside", 0, 2, 4, true},
		{"lower edge inclusive", 0, 0, 4, true},
		{"upper edge exclusive", 0, 4, 4, false},
		{"plain outside", 0, 5, 4, false},
		{"wrapped b after a", 6, 7, 2, true},
		{"wrapped b before c", 6, 1, 2, true},
		{"wrapped c exclusive", 6, 2, 2, false},
		{"wrapped outside", 6, 4, 2, false},
		{"wrapped lower edge", 6, 6, 2, true},
		{"equal bounds empty", 3, 3, 3, false},
		{"equal bounds other", 3, 5, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Between(tt.a, tt.b, tt.c))
		})
	}
}

func TestBetween_MatchesDistance(t *testing.T) {
	s := MustSpace(7)

	// b in [a, c) iff going clockwise from a reaches b before c
	for a := Seq(0); a <= 7; a++ {
		for b := Seq(0); b <= 7; b++ {
			for c := Seq(0); c <= 7; c++ {
				want := s.Distance(a, b) < s.Distance(a, c)
				assert.Equal(t, want, Between(a, b, c), "a=%d b=%d c=%d", a, b, c)
			}
		}
	}
}
