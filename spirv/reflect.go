package spirv

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/registry"
	"github.com/wippyai/spirv-cross/transport"
)

// maxElements bounds array counts reported by a core.
const maxElements = 1 << 20

func (c *Compiler) layouts() *abi.Layouts {
	return abi.LayoutsFor(c.b.t.PointerSize())
}

// u32Query runs a call that writes one uint32 to an out slot.
func (c *Compiler) u32Query(op string, call func(h, out spirvcross.Address) abi.Result) (uint32, error) {
	var v uint32
	err := c.Invoke(errors.PhaseQuery, op, func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		out, err := s.Zeroed(4)
		if err != nil {
			return 0, err
		}
		res := call(h, out)
		if res != abi.Success {
			return res, nil
		}
		v, err = c.b.t.ReadU32(out)
		return res, err
	})
	return v, err
}

// stringQuery runs a call that writes a char* to an out slot.
func (c *Compiler) stringQuery(op string, call func(h, out spirvcross.Address) abi.Result) (string, error) {
	var v string
	err := c.Invoke(errors.PhaseQuery, op, func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		out, err := s.Slot()
		if err != nil {
			return 0, err
		}
		res := call(h, out)
		if res != abi.Success {
			return res, nil
		}
		if v, err = c.b.takeString(out); err != nil {
			return 0, errors.Wrap(errors.PhaseQuery, errors.KindUnhandled, err, op)
		}
		return res, nil
	})
	return v, err
}

// takeElements decodes count elements of l at data and returns every
// allocation to the core, including the element strings named by strField.
// A failing element aborts the whole reply as Unhandled.
func (c *Compiler) takeElements(op string, data spirvcross.Address, count uint64, l *abi.Layout, strField string, fn func(r *abi.Record, str string) error) error {
	defer c.b.free(data)
	if count == 0 {
		return nil
	}
	if data == 0 || count > maxElements {
		return errors.New(errors.PhaseQuery, errors.KindUnhandled).
			Value(count).
			Detail("%s: invalid array (data %#x, count %d)", op, uint64(data), count).
			Build()
	}

	var (
		owned    []spirvcross.Address
		firstErr error
	)
	for i := 0; i < int(count); i++ {
		r := abi.Element(c.b.t, l, data, i)
		var str string
		if strField != "" {
			p := r.Pointer(strField)
			owned = append(owned, p)
			if firstErr == nil && r.Err() == nil {
				s, err := c.b.copyString(p)
				if err != nil {
					firstErr = err
				}
				str = s
			}
		}
		if firstErr == nil {
			if err := fn(r, str); err != nil {
				firstErr = err
			} else if r.Err() != nil {
				firstErr = r.Err()
			}
		}
	}
	for _, p := range owned {
		c.b.free(p)
	}
	if firstErr != nil {
		return errors.Wrap(errors.PhaseQuery, errors.KindUnhandled, firstErr, op)
	}
	return nil
}

// arrayQuery runs a call that writes (data, count) to two out slots.
func (c *Compiler) arrayQuery(op string, l *abi.Layout, strField string, call func(h, data, count spirvcross.Address) abi.Result, fn func(r *abi.Record, str string) error) error {
	return c.Invoke(errors.PhaseQuery, op, func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		dataSlot, err := s.Slot()
		if err != nil {
			return 0, err
		}
		countSlot, err := s.Slot()
		if err != nil {
			return 0, err
		}
		res := call(h, dataSlot, countSlot)
		if res != abi.Success {
			return res, nil
		}
		data, err := c.b.t.ReadPointer(dataSlot)
		if err != nil {
			return 0, err
		}
		count, err := c.b.t.ReadPointer(countSlot)
		if err != nil {
			c.b.free(data)
			return 0, err
		}
		return res, c.takeElements(op, data, uint64(count), l, strField, fn)
	})
}

// GetDecoration returns the argument of d on id, zero when absent.
func (c *Compiler) GetDecoration(id uint32, d Decoration) (uint32, error) {
	return c.u32Query("get_decoration", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetDecoration(h, out, id, uint32(d))
	})
}

// SetDecoration sets d on id.
func (c *Compiler) SetDecoration(id uint32, d Decoration, argument uint32) error {
	return c.Invoke(errors.PhaseQuery, "set_decoration", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.b.core.CompilerSetDecoration(h, id, uint32(d), argument), nil
	})
}

// UnsetDecoration removes d from id.
func (c *Compiler) UnsetDecoration(id uint32, d Decoration) error {
	return c.Invoke(errors.PhaseQuery, "unset_decoration", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.b.core.CompilerUnsetDecoration(h, id, uint32(d)), nil
	})
}

// GetName returns the debug name of id.
func (c *Compiler) GetName(id uint32) (string, error) {
	return c.stringQuery("get_name", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetName(h, id, out)
	})
}

// SetName renames id.
func (c *Compiler) SetName(id uint32, name string) error {
	return c.Invoke(errors.PhaseQuery, "set_name", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		str, err := s.CString(name)
		if err != nil {
			return 0, err
		}
		return c.b.core.CompilerSetName(h, id, str), nil
	})
}

// GetEntryPoints lists the module's entry points.
func (c *Compiler) GetEntryPoints() ([]EntryPoint, error) {
	var out []EntryPoint
	err := c.arrayQuery("get_entry_points", c.layouts().EntryPoint, "name",
		func(h, data, count spirvcross.Address) abi.Result {
			return c.b.core.CompilerGetEntryPoints(h, data, count)
		},
		func(r *abi.Record, name string) error {
			model, err := ExecutionModelFromRaw(r.U32("execution_model"))
			if err != nil {
				return err
			}
			out = append(out, EntryPoint{
				Name:           name,
				ExecutionModel: model,
				WorkgroupSize: WorkgroupSize{
					X: r.U32("workgroup_size_x"),
					Y: r.U32("workgroup_size_y"),
					Z: r.U32("workgroup_size_z"),
				},
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveBufferRanges returns the members of buffer block id the shader
// accesses.
func (c *Compiler) GetActiveBufferRanges(id uint32) ([]BufferRange, error) {
	var out []BufferRange
	err := c.arrayQuery("get_active_buffer_ranges", c.layouts().BufferRange, "",
		func(h, data, count spirvcross.Address) abi.Result {
			return c.b.core.CompilerGetActiveBufferRanges(h, id, data, count)
		},
		func(r *abi.Record, _ string) error {
			out = append(out, BufferRange{Index: r.U32("index"), Offset: r.Size("offset"), Range: r.Size("range")})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetCleansedEntryPointName returns the name an entry point was emitted
// under. Only valid after Compile.
func (c *Compiler) GetCleansedEntryPointName(name string, model ExecutionModel) (string, error) {
	c.live()
	if c.State() != registry.StateCompiled {
		return "", errors.Precondition(errors.PhaseQuery, "cleansed entry point names are only known after compile")
	}
	var v string
	err := c.Invoke(errors.PhaseQuery, "get_cleansed_entry_point_name", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		original, err := s.CString(name)
		if err != nil {
			return 0, err
		}
		out, err := s.Slot()
		if err != nil {
			return 0, err
		}
		res := c.b.core.CompilerGetCleansedEntryPointName(h, original, model.Raw(), out)
		if res != abi.Success {
			return res, nil
		}
		if v, err = c.b.takeString(out); err != nil {
			return 0, errors.Wrap(errors.PhaseQuery, errors.KindUnhandled, err, "get_cleansed_entry_point_name")
		}
		return res, nil
	})
	return v, err
}

// GetShaderResources reflects every resource category.
func (c *Compiler) GetShaderResources() (ShaderResources, error) {
	var out ShaderResources
	l := c.layouts()
	err := c.Invoke(errors.PhaseQuery, "get_shader_resources", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		addr, err := s.Zeroed(l.ShaderResources.Size)
		if err != nil {
			return 0, err
		}
		res := c.b.core.CompilerGetShaderResources(h, addr)
		if res != abi.Success {
			return res, nil
		}

		rec := abi.NewRecord(c.b.t, l.ShaderResources, addr)
		type reply struct {
			data  spirvcross.Address
			count uint64
		}
		replies := make([]reply, len(abi.ResourceCategories))
		for i, field := range abi.ResourceCategories {
			sub := rec.Sub(field)
			replies[i] = reply{data: sub.Pointer("data"), count: sub.Size("num")}
			if sub.Err() != nil {
				err = sub.Err()
			}
		}

		// Every category is consumed so nothing leaks when one fails.
		dst := out.categories()
		for i, r := range replies {
			if err != nil {
				c.takeElements("get_shader_resources", r.data, r.count, l.Resource, "name", func(*abi.Record, string) error { return nil })
				continue
			}
			list := make([]Resource, 0, min(r.count, maxElements))
			err = c.takeElements("get_shader_resources", r.data, r.count, l.Resource, "name", func(rec *abi.Record, name string) error {
				list = append(list, Resource{
					ID:         rec.U32("id"),
					TypeID:     rec.U32("type_id"),
					BaseTypeID: rec.U32("base_type_id"),
					Name:       name,
				})
				return nil
			})
			*dst[i] = list
		}
		return res, err
	})
	if err != nil {
		return ShaderResources{}, err
	}
	return out, nil
}

// GetSpecializationConstants lists the constants with a SpecId.
func (c *Compiler) GetSpecializationConstants() ([]SpecializationConstant, error) {
	var out []SpecializationConstant
	err := c.arrayQuery("get_specialization_constants", c.layouts().SpecializationConstant, "",
		func(h, data, count spirvcross.Address) abi.Result {
			return c.b.core.CompilerGetSpecializationConstants(h, data, count)
		},
		func(r *abi.Record, _ string) error {
			out = append(out, SpecializationConstant{ID: r.U32("id"), ConstantID: r.U32("constant_id")})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetScalarConstant overrides the value of a scalar constant. Values wider
// than 32 bits are split into high and low words at the boundary.
func (c *Compiler) SetScalarConstant(id uint32, value uint64) error {
	return c.Invoke(errors.PhaseQuery, "set_scalar_constant", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.b.core.CompilerSetScalarConstant(h, id, uint32(value>>32), uint32(value)), nil
	})
}

// GetType describes a type id.
func (c *Compiler) GetType(id uint32) (Type, error) {
	var out Type
	l := c.layouts().Type
	err := c.Invoke(errors.PhaseQuery, "get_type", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		slot, err := s.Slot()
		if err != nil {
			return 0, err
		}
		res := c.b.core.CompilerGetType(h, id, slot)
		if res != abi.Success {
			return res, nil
		}
		typ, err := c.b.t.ReadPointer(slot)
		if err != nil {
			return 0, err
		}
		if typ == 0 {
			return 0, errors.NilPointer(errors.PhaseQuery, []string{"get_type"}, "ScType*")
		}
		defer c.b.free(typ)

		r := abi.NewRecord(c.b.t, l, typ)
		raw := r.U32("type")
		members, nMembers := r.Pointer("member_types"), r.Size("member_types_size")
		array, nArray := r.Pointer("array"), r.Size("array_size")
		defer c.b.free(members)
		defer c.b.free(array)
		if r.Err() != nil {
			return 0, r.Err()
		}
		if out.BaseType, err = BaseTypeFromRaw(raw); err != nil {
			return 0, err
		}
		if out.MemberTypes, err = c.readWords(members, nMembers); err != nil {
			return 0, err
		}
		if out.Array, err = c.readWords(array, nArray); err != nil {
			return 0, err
		}
		return res, nil
	})
	if err != nil {
		return Type{}, err
	}
	return out, nil
}

func (c *Compiler) readWords(addr spirvcross.Address, n uint64) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	if addr == 0 || n > maxElements {
		return nil, errors.InvalidData(errors.PhaseQuery, nil, "invalid u32 array")
	}
	return transport.ReadWords(c.b.t, addr, uint32(n))
}

// GetMemberName returns the name of member index of struct id.
func (c *Compiler) GetMemberName(id, index uint32) (string, error) {
	return c.stringQuery("get_member_name", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetMemberName(h, id, index, out)
	})
}

// GetMemberDecoration returns the argument of d on member index of id.
func (c *Compiler) GetMemberDecoration(id, index uint32, d Decoration) (uint32, error) {
	return c.u32Query("get_member_decoration", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetMemberDecoration(h, id, index, uint32(d), out)
	})
}

// SetMemberDecoration sets d on member index of id.
func (c *Compiler) SetMemberDecoration(id, index uint32, d Decoration, argument uint32) error {
	return c.Invoke(errors.PhaseQuery, "set_member_decoration", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.b.core.CompilerSetMemberDecoration(h, id, index, uint32(d), argument), nil
	})
}

// GetDeclaredStructSize returns the byte size of struct id from its
// explicit layout decorations.
func (c *Compiler) GetDeclaredStructSize(id uint32) (uint32, error) {
	return c.u32Query("get_declared_struct_size", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetDeclaredStructSize(h, id, out)
	})
}

// GetDeclaredStructMemberSize returns the byte size of member index of id.
func (c *Compiler) GetDeclaredStructMemberSize(id, index uint32) (uint32, error) {
	return c.u32Query("get_declared_struct_member_size", func(h, out spirvcross.Address) abi.Result {
		return c.b.core.CompilerGetDeclaredStructMemberSize(h, id, index, out)
	})
}

// RenameInterfaceVariable renames the variable among resources that sits
// at location.
func (c *Compiler) RenameInterfaceVariable(resources []Resource, location uint32, name string) error {
	l := c.layouts().Resource
	return c.Invoke(errors.PhaseQuery, "rename_interface_variable", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		var data spirvcross.Address
		if len(resources) > 0 {
			var err error
			if data, err = s.Zeroed(l.Size * uint32(len(resources))); err != nil {
				return 0, err
			}
		}
		for i, res := range resources {
			str, err := s.CString(res.Name)
			if err != nil {
				return 0, err
			}
			r := abi.Element(c.b.t, l, data, i).
				SetU32("id", res.ID).
				SetU32("type_id", res.TypeID).
				SetU32("base_type_id", res.BaseTypeID).
				SetPointer("name", str)
			if r.Err() != nil {
				return 0, r.Err()
			}
		}
		str, err := s.CString(name)
		if err != nil {
			return 0, err
		}
		return c.b.core.CompilerRenameInterfaceVariable(h, data, uint32(len(resources)), location, str), nil
	})
}

// GetWorkGroupSizeSpecializationConstants returns the constants driving
// the local size.
func (c *Compiler) GetWorkGroupSizeSpecializationConstants() (WorkGroupSizeSpecializationConstants, error) {
	var out WorkGroupSizeSpecializationConstants
	l := c.layouts().SpecializationConstant
	err := c.Invoke(errors.PhaseQuery, "get_work_group_size_specialization_constants", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		slot, err := s.Slot()
		if err != nil {
			return 0, err
		}
		res := c.b.core.CompilerGetWorkGroupSizeSpecializationConstants(h, slot)
		if res != abi.Success {
			return res, nil
		}
		data, err := c.b.t.ReadPointer(slot)
		if err != nil {
			return 0, err
		}
		dims := []*SpecializationConstant{&out.X, &out.Y, &out.Z}
		i := 0
		return res, c.takeElements("get_work_group_size_specialization_constants", data, 3, l, "", func(r *abi.Record, _ string) error {
			*dims[i] = SpecializationConstant{ID: r.U32("id"), ConstantID: r.U32("constant_id")}
			i++
			return nil
		})
	})
	return out, err
}

// Layouts returns the struct layouts for the backend's pointer width.
func (c *Compiler) Layouts() *abi.Layouts {
	return c.layouts()
}

// QueryArray runs a call that writes (data, count) of l-shaped elements to
// two out slots and passes each element to fn. The array is returned to
// the core afterwards.
func (c *Compiler) QueryArray(op string, l *abi.Layout, call func(h, data, count spirvcross.Address) abi.Result, fn func(r *abi.Record) error) error {
	return c.arrayQuery(op, l, "", call, func(r *abi.Record, _ string) error { return fn(r) })
}

// QueryBool runs a call that writes one byte flag to an out slot.
func (c *Compiler) QueryBool(op string, call func(h, out spirvcross.Address) abi.Result) (bool, error) {
	var v uint8
	err := c.Invoke(errors.PhaseQuery, op, func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		out, err := s.Zeroed(1)
		if err != nil {
			return 0, err
		}
		res := call(h, out)
		if res != abi.Success {
			return res, nil
		}
		v, err = c.b.t.ReadU8(out)
		return res, err
	})
	return v != 0, err
}
