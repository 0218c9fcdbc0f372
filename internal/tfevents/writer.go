package tfevents

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Writer appends events to a TFRecord stream. Scalars are written as
// simple_value summaries.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(ev *Event) error {
	return w.writeRecord(encodeEvent(ev))
}

func (w *Writer) writeRecord(data []byte) error {
	rec := make([]byte, headerSize, headerSize+len(data)+footerSize)
	binary.LittleEndian.PutUint64(rec[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(rec[8:12], maskedCRC(rec[:8]))
	rec = append(rec, data...)
	rec = binary.LittleEndian.AppendUint32(rec, maskedCRC(data))
	_, err := w.w.Write(rec)
	return err
}

// WriteFile creates path and writes events to it, preceded by the
// file_version header event TensorBoard emits.
func WriteFile(path string, events []Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating event file: %w", err)
	}
	defer f.Close()

	w := NewWriter(f)
	if err := w.Write(&Event{FileVersion: "brain.Event:2"}); err != nil {
		return fmt.Errorf("writing event file: %w", err)
	}
	for i := range events {
		if err := w.Write(&events[i]); err != nil {
			return fmt.Errorf("writing event file: %w", err)
		}
	}
	return f.Close()
}

func encodeEvent(ev *Event) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(ev.WallTime))
	if ev.Step != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.Step))
	}
	if ev.FileVersion != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, ev.FileVersion)
	}
	if len(ev.Scalars) > 0 {
		var summary []byte
		for _, s := range ev.Scalars {
			var val []byte
			val = protowire.AppendTag(val, 1, protowire.BytesType)
			val = protowire.AppendString(val, s.Tag)
			val = protowire.AppendTag(val, 2, protowire.Fixed32Type)
			val = protowire.AppendFixed32(val, math.Float32bits(float32(s.Value)))
			summary = protowire.AppendTag(summary, 1, protowire.BytesType)
			summary = protowire.AppendBytes(summary, val)
		}
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, summary)
	}
	return b
}
