package link

import (
	"bytes"
)

// KISS framing bytes.
const (
	FEND    = 0xC0 // frame delimiter
	FESC    = 0xDB // escape
	TFEND   = 0xDC // escaped FEND
	TFESC   = 0xDD // escaped FESC
	CmdData = 0x00 // data frame on port 0
)

// escapeKISS escapes FEND and FESC so that payload bytes never look like a delimiter.
func escapeKISS(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/8)

	for _, b := range data {
		switch b {
		case FEND:
			out.Write([]byte{FESC, TFEND})
		case FESC:
			out.Write([]byte{FESC, TFESC})
		default:
			out.WriteByte(b)
		}
	}

	return out.Bytes()
}

// unescapeKISS reverses escapeKISS. A FESC not followed by TFEND or TFESC is
// kept as is.
func unescapeKISS(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == FESC && i+1 < len(data) {
			switch data[i+1] {
			case TFEND:
				out.WriteByte(FEND)
				i++

				continue
			case TFESC:
				out.WriteByte(FESC)
				i++

				continue
			}
		}
		out.WriteByte(b)
	}

	return out.Bytes()
}

// encodeKISS wraps payload in a KISS data frame: FEND CMD escaped(payload) FEND.
func encodeKISS(payload []byte) []byte {
	escaped := escapeKISS(payload)

	buf := make([]byte, 0, len(escaped)+3)
	buf = append(buf, FEND, CmdData)
	buf = append(buf, escaped...)
	buf = append(buf, FEND)

	return buf
}

// kissDecoder splits a byte stream into KISS frame payloads.
//
// Bytes before the first FEND and empty frames between consecutive FENDs are
// ignored. A frame growing beyond maxSize is discarded up to the next FEND.
type kissDecoder struct {
	buf      []byte
	inFrame  bool
	overflow bool
	maxSize  int

	dropped int // frames discarded since the last call to takeDropped
}

func newKISSDecoder(maxSize int) *kissDecoder {
	return &kissDecoder{maxSize: maxSize}
}

// feed consumes data and returns the unescaped payloads of the KISS data
// frames it completed.
func (d *kissDecoder) feed(data []byte) [][]byte {
	var out [][]byte

	for _, b := range data {
		if b != FEND {
			if !d.inFrame || d.overflow {
				continue
			}
			if len(d.buf) >= d.maxSize {
				d.overflow = true
				d.buf = d.buf[:0]

				continue
			}
			d.buf = append(d.buf, b)

			continue
		}

		// FEND closes the current frame and opens the next one
		switch {
		case d.overflow:
			d.dropped++
		case len(d.buf) == 0:
		case d.buf[0] != CmdData:
			d.dropped++
		default:
			out = append(out, unescapeKISS(d.buf[1:]))
		}
		d.buf = d.buf[:0]
		d.inFrame = true
		d.overflow = false
	}

	return out
}

func (d *kissDecoder) takeDropped() int {
	n := d.dropped
	d.dropped = 0

	return n
}
