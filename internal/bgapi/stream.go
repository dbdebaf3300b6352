package bgapi

import (
	"fmt"
	"io"
)

// ReadFrame reads one frame from a blocking stream. In packet mode the leading length
// byte is consumed and checked against the header.
func ReadFrame(r io.Reader, packetMode bool) (Packet, error) {
	var prefix [1]byte
	if packetMode {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			return nil, err
		}
	}

	hdr := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	n := Packet(hdr).PayloadLen()

	frame := make(Packet, HeaderLen+n)
	copy(frame, hdr)
	if _, err := io.ReadFull(r, frame[HeaderLen:]); err != nil {
		return nil, err
	}

	if packetMode && int(prefix[0]) != len(frame) {
		return frame, fmt.Errorf("packet mode length %d does not match frame length %d", prefix[0], len(frame))
	}
	return frame, nil
}

// Encode returns the bytes to put on the wire for p.
func Encode(p Packet, packetMode bool) ([]byte, error) {
	if !packetMode {
		return p, nil
	}
	if len(p) > 0xFF {
		return nil, fmt.Errorf("frame of %d bytes does not fit packet mode", len(p))
	}
	return append([]byte{byte(len(p))}, p...), nil
}

// Assembler splits a byte stream delivered in arbitrary chunks into frames. It is meant
// for non-blocking sources that hand out whatever bytes arrived.
type Assembler struct {
	PacketMode bool
	buf        []byte
}

// Feed appends data and returns every frame completed by it.
func (a *Assembler) Feed(data []byte) []Packet {
	a.buf = append(a.buf, data...)

	var out []Packet
	for {
		skip := 0
		if a.PacketMode {
			skip = 1
		}
		if len(a.buf) < skip+HeaderLen {
			return out
		}
		total := skip + HeaderLen + Packet(a.buf[skip:]).PayloadLen()
		if len(a.buf) < total {
			return out
		}
		frame := make(Packet, total-skip)
		copy(frame, a.buf[skip:total])
		out = append(out, frame)
		a.buf = a.buf[total:]
	}
}

// Pending returns the number of buffered bytes not yet forming a frame.
func (a *Assembler) Pending() int {
	return len(a.buf)
}
