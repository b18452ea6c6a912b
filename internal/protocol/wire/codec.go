package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrEmptyUnion is returned when a decoded union carries no known member.
	ErrEmptyUnion = errors.New("wire: message carries no known union member")
)

// encoder appends proto3 fields, omitting scalar defaults.
type encoder struct{ b []byte }

func (e *encoder) bytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) uvarint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

// int32 uses the proto sign extension: negatives take ten bytes.
func (e *encoder) int32(num protowire.Number, v int32) { e.uvarint(num, uint64(int64(v))) }

func (e *encoder) int64(num protowire.Number, v int64) { e.uvarint(num, uint64(v)) }

func (e *encoder) sint32(num protowire.Number, v int32) {
	e.uvarint(num, protowire.EncodeZigZag(int64(v)))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if v {
		e.uvarint(num, 1)
	}
}

// message always writes the field, even for an empty body, so that a oneof
// member with all-default fields stays selected.
func (e *encoder) message(num protowire.Number, body []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, body)
}

// packed writes a repeated enum/int32 in packed form.
func (e *encoder) packed(num protowire.Number, vals []int32) {
	if len(vals) == 0 {
		return
	}
	var body []byte
	for _, v := range vals {
		body = protowire.AppendVarint(body, uint64(int64(v)))
	}
	e.message(num, body)
}

// field is one decoded field: varint fields set x, length-delimited fields
// set v.
type field struct {
	num protowire.Number
	typ protowire.Type
	x   uint64
	v   []byte
}

func (f field) int32() int32   { return int32(f.x) }
func (f field) int64() int64   { return int64(f.x) }
func (f field) sint32() int32  { return int32(protowire.DecodeZigZag(f.x)) }
func (f field) bool() bool     { return f.x != 0 }
func (f field) str() string    { return string(f.v) }
func (f field) clone() []byte  { return append([]byte(nil), f.v...) }
func (f field) isBytes() bool  { return f.typ == protowire.BytesType }
func (f field) isVarint() bool { return f.typ == protowire.VarintType }

// walk calls fn for every varint and length-delimited field in b, skipping
// other wire types.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.x, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("wire: field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("wire: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// repeatedInt32 decodes a repeated enum field in either packed or unpacked form.
func repeatedInt32(f field, dst []int32) ([]int32, error) {
	if f.isVarint() {
		return append(dst, f.int32()), nil
	}
	b := f.v
	for len(b) > 0 {
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, fmt.Errorf("wire: packed field %d: %w", f.num, protowire.ParseError(n))
		}
		dst = append(dst, int32(x))
		b = b[n:]
	}
	return dst, nil
}
