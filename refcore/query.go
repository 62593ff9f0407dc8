package refcore

import (
	"fmt"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/internal/spirvbin"
	"github.com/wippyai/spirv-cross/transport"
)

// query runs fn against a live compiler under the core lock.
func (c *Core) query(h abi.Address, fn func(comp *compilerState) abi.Result) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(h)
	if !ok {
		return abi.Unhandled
	}
	return fn(comp)
}

func (c *Core) checkID(comp *compilerState, id uint32) (abi.Result, bool) {
	if id == 0 || id >= comp.m.bound {
		return c.fail(fmt.Sprintf("ID %d is out of range.", id)), false
	}
	return abi.Success, true
}

func (c *Core) CompilerGetDecoration(compiler, result abi.Address, id, decoration uint32) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		v, _ := comp.m.decoration(id, decoration)
		if err := c.t.WriteU32(result, v); err != nil {
			return abi.Unhandled
		}
		return abi.Success
	})
}

func (c *Core) CompilerSetDecoration(compiler abi.Address, id, decoration, argument uint32) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		comp.m.decorate(id, decoration, argument)
		return abi.Success
	})
}

func (c *Core) CompilerUnsetDecoration(compiler abi.Address, id, decoration uint32) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		delete(comp.m.decorations[id], decoration)
		return abi.Success
	})
}

func (c *Core) CompilerGetName(compiler abi.Address, id uint32, name abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		return c.replyString(name, comp.m.names[id])
	})
}

func (c *Core) CompilerSetName(compiler abi.Address, id uint32, name abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		s, err := transport.ReadCString(c.t, name)
		if err != nil {
			return abi.Unhandled
		}
		comp.m.names[id] = s
		return abi.Success
	})
}

func (c *Core) replyString(slot abi.Address, s string) abi.Result {
	out := c.outputs()
	addr, err := out.str(s)
	if err != nil {
		return out.abort()
	}
	if err := c.t.WritePointer(slot, addr); err != nil {
		return out.abort()
	}
	return out.commit()
}

func (c *Core) CompilerGetEntryPoints(compiler, entryPoints, size abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		out := c.outputs()
		l := abi.LayoutsFor(c.t.PointerSize()).EntryPoint
		eps := comp.m.entryPoints
		return out.array(entryPoints, size, l, len(eps), func(i int, r *abi.Record) error {
			ep := eps[i]
			name, err := out.str(ep.name)
			if err != nil {
				return err
			}
			wg := comp.m.workGroupSize(ep)
			r.SetPointer("name", name).
				SetU32("execution_model", ep.model).
				SetU32("workgroup_size_x", wg[0]).
				SetU32("workgroup_size_y", wg[1]).
				SetU32("workgroup_size_z", wg[2])
			return nil
		})
	})
}

func (c *Core) CompilerGetActiveBufferRanges(compiler abi.Address, id uint32, ranges, size abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		br, err := comp.m.activeBufferRanges(id)
		if err != nil {
			return c.fail(err.Error())
		}
		l := abi.LayoutsFor(c.t.PointerSize()).BufferRange
		return c.outputs().array(ranges, size, l, len(br), func(i int, r *abi.Record) error {
			r.SetU32("index", br[i].index).
				SetSize("offset", uint64(br[i].offset)).
				SetSize("range", uint64(br[i].size))
			return nil
		})
	})
}

func (c *Core) CompilerGetCleansedEntryPointName(compiler, original abi.Address, executionModel uint32, compiled abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		name, err := transport.ReadCString(c.t, original)
		if err != nil {
			return abi.Unhandled
		}
		ep, ok := comp.m.entryPoint(name, executionModel)
		if !ok {
			return c.fail("Entry point does not exist.")
		}
		return c.replyString(compiled, ep.compiled)
	})
}

func (c *Core) CompilerGetShaderResources(compiler, resources abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		l := abi.LayoutsFor(c.t.PointerSize())
		all := comp.m.shaderResources()
		out := c.outputs()

		type reply struct {
			data abi.Address
			n    int
		}
		var replies [numCategories]reply
		for cat, list := range all {
			if len(list) == 0 {
				continue
			}
			data, err := out.zeroed(l.Resource.Size * uint32(len(list)))
			if err != nil {
				return out.abort()
			}
			for i, res := range list {
				name, err := out.str(res.name)
				if err != nil {
					return out.abort()
				}
				r := abi.Element(c.t, l.Resource, data, i).
					SetU32("id", res.id).
					SetU32("type_id", res.typeID).
					SetU32("base_type_id", res.baseTypeID).
					SetPointer("name", name)
				if r.Err() != nil {
					return out.abort()
				}
			}
			replies[cat] = reply{data: data, n: len(list)}
		}

		rec := abi.NewRecord(c.t, l.ShaderResources, resources)
		for cat, field := range abi.ResourceCategories {
			sub := rec.Sub(field).SetPointer("data", replies[cat].data).SetSize("num", uint64(replies[cat].n))
			if sub.Err() != nil {
				return out.abort()
			}
		}
		return out.commit()
	})
}

func (c *Core) CompilerGetSpecializationConstants(compiler, constants, size abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		sc := comp.m.specializationConstants()
		l := abi.LayoutsFor(c.t.PointerSize()).SpecializationConstant
		return c.outputs().array(constants, size, l, len(sc), func(i int, r *abi.Record) error {
			r.SetU32("id", sc[i].id).SetU32("constant_id", sc[i].constantID)
			return nil
		})
	})
}

func (c *Core) CompilerSetScalarConstant(compiler abi.Address, id, high, low uint32) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if err := comp.m.setScalarConstant(id, high, low); err != nil {
			return c.fail(err.Error())
		}
		return abi.Success
	})
}

func (c *Core) CompilerGetType(compiler abi.Address, id uint32, spirvType abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		d, err := comp.m.describeType(id)
		if err != nil {
			return c.fail(err.Error())
		}
		l := abi.LayoutsFor(c.t.PointerSize()).Type
		out := c.outputs()

		u32s := func(vals []uint32) (abi.Address, error) {
			if len(vals) == 0 {
				return 0, nil
			}
			addr := out.alloc(uint32(4 * len(vals)))
			return addr, transport.WriteWords(c.t, addr, vals)
		}
		members, err := u32s(d.members)
		if err != nil {
			return out.abort()
		}
		array, err := u32s(d.array)
		if err != nil {
			return out.abort()
		}
		typ, err := out.zeroed(l.Size)
		if err != nil {
			return out.abort()
		}
		r := abi.NewRecord(c.t, l, typ).
			SetU32("type", d.base).
			SetPointer("member_types", members).
			SetSize("member_types_size", uint64(len(d.members))).
			SetPointer("array", array).
			SetSize("array_size", uint64(len(d.array)))
		if r.Err() != nil {
			return out.abort()
		}
		if err := c.t.WritePointer(spirvType, typ); err != nil {
			return out.abort()
		}
		return out.commit()
	})
}

func (c *Core) CompilerGetMemberName(compiler abi.Address, id, index uint32, name abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		return c.replyString(name, comp.m.memberNames[id][index])
	})
}

func (c *Core) CompilerGetMemberDecoration(compiler abi.Address, id, index, decoration uint32, result abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		v, _ := comp.m.memberDecoration(id, index, decoration)
		if err := c.t.WriteU32(result, v); err != nil {
			return abi.Unhandled
		}
		return abi.Success
	})
}

func (c *Core) CompilerSetMemberDecoration(compiler abi.Address, id, index, decoration, argument uint32) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		if r, ok := c.checkID(comp, id); !ok {
			return r
		}
		comp.m.decorateMember(id, index, decoration, argument)
		return abi.Success
	})
}

func (c *Core) CompilerGetDeclaredStructSize(compiler abi.Address, id uint32, result abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		size, err := comp.m.declaredStructSize(id)
		if err != nil {
			return c.fail(err.Error())
		}
		if err := c.t.WriteU32(result, size); err != nil {
			return abi.Unhandled
		}
		return abi.Success
	})
}

func (c *Core) CompilerGetDeclaredStructMemberSize(compiler abi.Address, id, index uint32, result abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		size, err := comp.m.declaredMemberSize(id, index)
		if err != nil {
			return c.fail(err.Error())
		}
		if err := c.t.WriteU32(result, size); err != nil {
			return abi.Unhandled
		}
		return abi.Success
	})
}

func (c *Core) CompilerRenameInterfaceVariable(compiler, resources abi.Address, count, location uint32, name abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		newName, err := transport.ReadCString(c.t, name)
		if err != nil {
			return abi.Unhandled
		}
		l := abi.LayoutsFor(c.t.PointerSize()).Resource
		for i := 0; i < int(count); i++ {
			r := abi.Element(c.t, l, resources, i)
			id := r.U32("id")
			if r.Err() != nil {
				return abi.Unhandled
			}
			loc, ok := comp.m.decoration(id, spirvbin.DecorationLocation)
			if !ok || loc != location {
				continue
			}
			comp.m.names[id] = newName
			return abi.Success
		}
		return abi.Success
	})
}

func (c *Core) CompilerGetWorkGroupSizeSpecializationConstants(compiler, constants abi.Address) abi.Result {
	return c.query(compiler, func(comp *compilerState) abi.Result {
		wg := comp.m.workGroupSizeConstants()
		l := abi.LayoutsFor(c.t.PointerSize()).SpecializationConstant
		out := c.outputs()
		data, err := out.zeroed(3 * l.Size)
		if err != nil {
			return out.abort()
		}
		for i, sc := range wg {
			r := abi.Element(c.t, l, data, i).SetU32("id", sc.id).SetU32("constant_id", sc.constantID)
			if r.Err() != nil {
				return out.abort()
			}
		}
		if err := c.t.WritePointer(constants, data); err != nil {
			return out.abort()
		}
		return out.commit()
	})
}
