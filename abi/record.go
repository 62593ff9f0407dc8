package abi

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/errors"
)

// Record reads and writes one C struct in transport memory. The first
// failing access is kept and every later access becomes a no-op, so a
// sequence of field accesses needs a single Err check.
type Record struct {
	t      spirvcross.Transport
	layout *Layout
	base   Address
	err    error
}

// NewRecord binds a layout to a struct at base.
func NewRecord(t spirvcross.Transport, layout *Layout, base Address) *Record {
	r := &Record{t: t, layout: layout, base: base}
	if base == 0 {
		r.err = errors.NilPointer(errors.PhaseMarshal, []string{layout.Name}, layout.Name+"*")
	}
	return r
}

// Element binds the i-th struct of an array starting at base.
func Element(t spirvcross.Transport, layout *Layout, base Address, i int) *Record {
	return NewRecord(t, layout, base+Address(uint64(i)*uint64(layout.Size)))
}

// Err returns the first access error.
func (r *Record) Err() error {
	return r.err
}

// Base returns the struct address.
func (r *Record) Base() Address {
	return r.base
}

// Layout returns the bound layout.
func (r *Record) Layout() *Layout {
	return r.layout
}

func (r *Record) addr(field string) Address {
	return r.base + Address(r.layout.Offset(field))
}

func (r *Record) fail(field string, err error) {
	if r.err == nil {
		r.err = errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
			Path(r.layout.Name, field).
			Cause(err).
			Build()
	}
}

// Sub binds a nested struct field.
func (r *Record) Sub(field string) *Record {
	f := r.layout.Field(field)
	sub := &Record{t: r.t, layout: f.Struct, base: r.addr(field), err: r.err}
	return sub
}

// U32 reads a uint32_t or 32-bit enum field.
func (r *Record) U32(field string) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.t.ReadU32(r.addr(field))
	if err != nil {
		r.fail(field, err)
	}
	return v
}

// I32 reads an int32_t field.
func (r *Record) I32(field string) int32 {
	return int32(r.U32(field))
}

// U8 reads a uint8_t field.
func (r *Record) U8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.t.ReadU8(r.addr(field))
	if err != nil {
		r.fail(field, err)
	}
	return v
}

// Bool reads a C bool field.
func (r *Record) Bool(field string) bool {
	return r.U8(field) != 0
}

// Pointer reads a pointer field.
func (r *Record) Pointer(field string) Address {
	if r.err != nil {
		return 0
	}
	v, err := r.t.ReadPointer(r.addr(field))
	if err != nil {
		r.fail(field, err)
	}
	return v
}

// Size reads a size_t field.
func (r *Record) Size(field string) uint64 {
	return uint64(r.Pointer(field))
}

// SetU32 writes a uint32_t or 32-bit enum field.
func (r *Record) SetU32(field string, v uint32) *Record {
	if r.err == nil {
		if err := r.t.WriteU32(r.addr(field), v); err != nil {
			r.fail(field, err)
		}
	}
	return r
}

// SetI32 writes an int32_t field.
func (r *Record) SetI32(field string, v int32) *Record {
	return r.SetU32(field, uint32(v))
}

// SetU8 writes a uint8_t field.
func (r *Record) SetU8(field string, v uint8) *Record {
	if r.err == nil {
		if err := r.t.WriteU8(r.addr(field), v); err != nil {
			r.fail(field, err)
		}
	}
	return r
}

// SetBool writes a C bool field.
func (r *Record) SetBool(field string, v bool) *Record {
	var b uint8
	if v {
		b = 1
	}
	return r.SetU8(field, b)
}

// SetPointer writes a pointer field.
func (r *Record) SetPointer(field string, v Address) *Record {
	if r.err == nil {
		if err := r.t.WritePointer(r.addr(field), v); err != nil {
			r.fail(field, err)
		}
	}
	return r
}

// SetSize writes a size_t field.
func (r *Record) SetSize(field string, v uint64) *Record {
	return r.SetPointer(field, Address(v))
}

// Zero clears the whole struct.
func (r *Record) Zero() *Record {
	if r.err == nil && r.layout.Size > 0 {
		if err := r.t.Write(r.base, make([]byte, r.layout.Size)); err != nil {
			r.fail("*", err)
		}
	}
	return r
}
