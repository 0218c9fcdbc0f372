// Package tfevents reads and writes TensorBoard event files: TFRecord
// framed tensorflow.Event protos. Only the fields needed for scalar
// summaries are decoded; everything else is skipped.
package tfevents

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// TFRecord framing: len(8) + masked crc(len)(4) + data + masked crc(data)(4).
const (
	headerSize    = 12
	footerSize    = 4
	maxRecordSize = 256 << 20
	crcMaskDelta  = 0xa282ead8
)

// tensorflow DataType values for scalar tensors.
const (
	dtFloat  = 1
	dtDouble = 2
)

var (
	// ErrTruncated means the stream ended in the middle of a record, which
	// happens when the writer is still running.
	ErrTruncated = errors.New("tfevents: truncated record")
	// ErrCorrupt means a record failed its checksum.
	ErrCorrupt = errors.New("tfevents: corrupt record")
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Scalar is one tagged value from a summary.
type Scalar struct {
	Tag   string
	Value float64
}

// Event is the decoded subset of a tensorflow.Event.
type Event struct {
	WallTime    float64
	Step        int64
	FileVersion string
	Scalars     []Scalar
}

func maskedCRC(b []byte) uint32 {
	c := crc32.Checksum(b, crc32cTable)
	return ((c >> 15) | (c << 17)) + crcMaskDelta
}

// Reader yields events from a TFRecord stream in file order.
type Reader struct {
	br     *bufio.Reader
	closer io.Closer
	offset int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Open opens an event file for reading. The caller must Close it.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event file: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Next returns the next event, io.EOF at a clean end of stream, or
// ErrTruncated when the final record is incomplete.
func (r *Reader) Next() (*Event, error) {
	data, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	ev, err := decodeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("decoding event at offset %d: %w", r.offset, err)
	}
	return ev, nil
}

func (r *Reader) readRecord() ([]byte, error) {
	var head [headerSize]byte
	n, err := io.ReadFull(r.br, head[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w at offset %d", ErrTruncated, r.offset)
	}
	if got, want := binary.LittleEndian.Uint32(head[8:]), maskedCRC(head[:8]); got != want {
		return nil, fmt.Errorf("%w: length checksum mismatch at offset %d", ErrCorrupt, r.offset)
	}
	size := binary.LittleEndian.Uint64(head[:8])
	if size > maxRecordSize {
		return nil, fmt.Errorf("%w: record length %d at offset %d", ErrCorrupt, size, r.offset)
	}

	buf := make([]byte, size+footerSize)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, fmt.Errorf("%w at offset %d", ErrTruncated, r.offset)
	}
	data, foot := buf[:size], buf[size:]
	if got, want := binary.LittleEndian.Uint32(foot), maskedCRC(data); got != want {
		return nil, fmt.Errorf("%w: data checksum mismatch at offset %d", ErrCorrupt, r.offset)
	}
	r.offset += int64(headerSize + len(buf))
	return data, nil
}

// consumeField parses one field at b and hands its value to fn. It returns
// the number of bytes consumed.
func consumeField(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error) (int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	rest := b[n:]
	var (
		m int
		v []byte
		u uint64
	)
	switch typ {
	case protowire.VarintType:
		u, m = protowire.ConsumeVarint(rest)
	case protowire.Fixed32Type:
		var x uint32
		x, m = protowire.ConsumeFixed32(rest)
		u = uint64(x)
	case protowire.Fixed64Type:
		u, m = protowire.ConsumeFixed64(rest)
	case protowire.BytesType:
		v, m = protowire.ConsumeBytes(rest)
	default:
		m = protowire.ConsumeFieldValue(num, typ, rest)
	}
	if m < 0 {
		return 0, protowire.ParseError(m)
	}
	if err := fn(num, typ, v, u); err != nil {
		return 0, err
	}
	return n + m, nil
}

func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error) error {
	for len(b) > 0 {
		n, err := consumeField(b, fn)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func decodeEvent(b []byte) (*Event, error) {
	ev := &Event{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			ev.WallTime = math.Float64frombits(u)
		case num == 2 && typ == protowire.VarintType:
			ev.Step = int64(u)
		case num == 3 && typ == protowire.BytesType:
			ev.FileVersion = string(v)
		case num == 5 && typ == protowire.BytesType:
			return decodeSummary(v, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeSummary(b []byte, ev *Event) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		s, ok, err := decodeValue(v)
		if err != nil {
			return err
		}
		if ok {
			ev.Scalars = append(ev.Scalars, s)
		}
		return nil
	})
}

// decodeValue reads a Summary.Value. ok is false for non-scalar values
// (images, histograms, ...).
func decodeValue(b []byte) (Scalar, bool, error) {
	var (
		s  Scalar
		ok bool
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s.Tag = string(v)
		case num == 2 && typ == protowire.Fixed32Type:
			s.Value = float64(math.Float32frombits(uint32(u)))
			ok = true
		case num == 8 && typ == protowire.BytesType:
			x, found, err := decodeScalarTensor(v)
			if err != nil {
				return err
			}
			if found {
				s.Value, ok = x, true
			}
		}
		return nil
	})
	return s, ok, err
}

// decodeScalarTensor extracts the first element of a float or double
// TensorProto, as written by TF2 scalar summaries.
func decodeScalarTensor(b []byte) (float64, bool, error) {
	var (
		dtype   uint64
		content []byte
		vals    []float64
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch num {
		case 1:
			dtype = u
		case 4:
			content = v
		case 5:
			if typ == protowire.Fixed32Type {
				vals = append(vals, float64(math.Float32frombits(uint32(u))))
			} else if typ == protowire.BytesType {
				for ; len(v) >= 4; v = v[4:] {
					vals = append(vals, float64(math.Float32frombits(binary.LittleEndian.Uint32(v))))
				}
			}
		case 6:
			if typ == protowire.Fixed64Type {
				vals = append(vals, math.Float64frombits(u))
			} else if typ == protowire.BytesType {
				for ; len(v) >= 8; v = v[8:] {
					vals = append(vals, math.Float64frombits(binary.LittleEndian.Uint64(v)))
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if len(vals) > 0 {
		return vals[0], true, nil
	}
	switch {
	case dtype == dtFloat && len(content) >= 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(content))), true, nil
	case dtype == dtDouble && len(content) >= 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(content)), true, nil
	}
	return 0, false, nil
}
