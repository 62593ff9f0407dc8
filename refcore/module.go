package refcore

import (
	"fmt"
	"sort"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

type entryPoint struct {
	name       string
	compiled   string
	fn         uint32
	model      uint32
	interfaces []uint32
	localSize  [3]uint32
}

type typeInfo struct {
	op       spirvbin.Op
	id       uint32
	width    uint32
	signed   bool
	elem     uint32 // component, column, element, pointee or image type
	count    uint32 // vector size, column count or array length constant id
	storage  uint32
	members  []uint32
	dim      uint32
	sampled  uint32
	runtime  bool
	funcType bool
}

type constant struct {
	typeID uint32
	spec   bool
	value  [2]uint32
	parts  []uint32
}

type variable struct {
	id      uint32
	typeID  uint32
	storage uint32
}

type sampledImage struct {
	image   uint32
	sampler uint32
}

// module is the reflected view of a SPIR-V binary. It is mutable: the
// decoration and name stores are edited through the contract.
type module struct {
	bound       uint32
	entryPoints []*entryPoint
	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	decorations map[uint32]map[uint32]uint32
	memberDecs  map[uint32]map[uint32]map[uint32]uint32
	types       map[uint32]*typeInfo
	constants   map[uint32]*constant
	constOrder  []uint32
	variables   []variable
	varIndex    map[uint32]int
	loads       map[uint32]uint32
	accesses    map[uint32]map[uint32]bool
	wholeLoads  map[uint32]bool
	samplings   []sampledImage
}

func (m *module) decorate(id, dec, arg uint32) {
	d, ok := m.decorations[id]
	if !ok {
		d = make(map[uint32]uint32)
		m.decorations[id] = d
	}
	d[dec] = arg
}

func (m *module) decorateMember(id, member, dec, arg uint32) {
	byMember, ok := m.memberDecs[id]
	if !ok {
		byMember = make(map[uint32]map[uint32]uint32)
		m.memberDecs[id] = byMember
	}
	d, ok := byMember[member]
	if !ok {
		d = make(map[uint32]uint32)
		byMember[member] = d
	}
	d[dec] = arg
}

func (m *module) decoration(id, dec uint32) (uint32, bool) {
	v, ok := m.decorations[id][dec]
	return v, ok
}

func (m *module) memberDecoration(id, member, dec uint32) (uint32, bool) {
	v, ok := m.memberDecs[id][member][dec]
	return v, ok
}

func (m *module) setMemberName(id, member uint32, name string) {
	byMember, ok := m.memberNames[id]
	if !ok {
		byMember = make(map[uint32]string)
		m.memberNames[id] = byMember
	}
	byMember[member] = name
}

// flagArg is stored for decorations that carry no literal.
const flagArg = 1

func parseModule(words []uint32) (*module, error) {
	hdr, insts, err := spirvbin.Decode(words)
	if err != nil {
		return nil, err
	}

	m := &module{
		bound:       hdr.Bound,
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		decorations: make(map[uint32]map[uint32]uint32),
		memberDecs:  make(map[uint32]map[uint32]map[uint32]uint32),
		types:       make(map[uint32]*typeInfo),
		constants:   make(map[uint32]*constant),
		varIndex:    make(map[uint32]int),
		loads:       make(map[uint32]uint32),
		accesses:    make(map[uint32]map[uint32]bool),
		wholeLoads:  make(map[uint32]bool),
	}

	inFunction := false
	for _, in := range insts {
		ops := in.Operands
		need := func(n int) error {
			if len(ops) < n {
				return fmt.Errorf("opcode %d at word %d has %d operands, want at least %d", in.Op, in.Offset, len(ops), n)
			}
			return nil
		}

		switch in.Op {
		case spirvbin.OpName:
			if err := need(2); err != nil {
				return nil, err
			}
			s, _, err := spirvbin.DecodeString(ops[1:])
			if err != nil {
				return nil, err
			}
			m.names[ops[0]] = s

		case spirvbin.OpMemberName:
			if err := need(3); err != nil {
				return nil, err
			}
			s, _, err := spirvbin.DecodeString(ops[2:])
			if err != nil {
				return nil, err
			}
			m.setMemberName(ops[0], ops[1], s)

		case spirvbin.OpEntryPoint:
			if err := need(3); err != nil {
				return nil, err
			}
			s, n, err := spirvbin.DecodeString(ops[2:])
			if err != nil {
				return nil, err
			}
			m.entryPoints = append(m.entryPoints, &entryPoint{
				model:      ops[0],
				fn:         ops[1],
				name:       s,
				compiled:   s,
				interfaces: append([]uint32(nil), ops[2+n:]...),
			})

		case spirvbin.OpExecutionMode:
			if err := need(2); err != nil {
				return nil, err
			}
			if ops[1] == spirvbin.ExecutionModeLocalSize && len(ops) >= 5 {
				for _, ep := range m.entryPoints {
					if ep.fn == ops[0] {
						copy(ep.localSize[:], ops[2:5])
					}
				}
			}

		case spirvbin.OpDecorate:
			if err := need(2); err != nil {
				return nil, err
			}
			arg := uint32(flagArg)
			if len(ops) > 2 {
				arg = ops[2]
			}
			m.decorate(ops[0], ops[1], arg)

		case spirvbin.OpMemberDecorate:
			if err := need(3); err != nil {
				return nil, err
			}
			arg := uint32(flagArg)
			if len(ops) > 3 {
				arg = ops[3]
			}
			m.decorateMember(ops[0], ops[1], ops[2], arg)

		case spirvbin.OpTypeVoid, spirvbin.OpTypeBool, spirvbin.OpTypeSampler:
			if err := need(1); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0]}

		case spirvbin.OpTypeInt:
			if err := need(3); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], width: ops[1], signed: ops[2] != 0}

		case spirvbin.OpTypeFloat:
			if err := need(2); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], width: ops[1]}

		case spirvbin.OpTypeVector, spirvbin.OpTypeMatrix, spirvbin.OpTypeArray:
			if err := need(3); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], elem: ops[1], count: ops[2]}

		case spirvbin.OpTypeRuntimeArray, spirvbin.OpTypeSampledImage:
			if err := need(2); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], elem: ops[1], runtime: in.Op == spirvbin.OpTypeRuntimeArray}

		case spirvbin.OpTypeImage:
			if err := need(7); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], elem: ops[1], dim: ops[2], sampled: ops[6]}

		case spirvbin.OpTypeStruct:
			if err := need(1); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], members: append([]uint32(nil), ops[1:]...)}

		case spirvbin.OpTypePointer:
			if err := need(3); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], storage: ops[1], elem: ops[2]}

		case spirvbin.OpTypeFunction:
			if err := need(2); err != nil {
				return nil, err
			}
			m.types[ops[0]] = &typeInfo{op: in.Op, id: ops[0], elem: ops[1], funcType: true}

		case spirvbin.OpConstantTrue, spirvbin.OpConstantFalse,
			spirvbin.OpSpecConstantTrue, spirvbin.OpSpecConstantFalse:
			if err := need(2); err != nil {
				return nil, err
			}
			c := &constant{typeID: ops[0], spec: in.Op == spirvbin.OpSpecConstantTrue || in.Op == spirvbin.OpSpecConstantFalse}
			if in.Op == spirvbin.OpConstantTrue || in.Op == spirvbin.OpSpecConstantTrue {
				c.value[0] = 1
			}
			m.addConstant(ops[1], c)

		case spirvbin.OpConstant, spirvbin.OpSpecConstant:
			if err := need(3); err != nil {
				return nil, err
			}
			c := &constant{typeID: ops[0], spec: in.Op == spirvbin.OpSpecConstant}
			copy(c.value[:], ops[2:])
			m.addConstant(ops[1], c)

		case spirvbin.OpConstantComposite, spirvbin.OpSpecConstantComposite:
			if err := need(2); err != nil {
				return nil, err
			}
			c := &constant{typeID: ops[0], spec: in.Op == spirvbin.OpSpecConstantComposite, parts: append([]uint32(nil), ops[2:]...)}
			m.addConstant(ops[1], c)

		case spirvbin.OpVariable:
			if err := need(3); err != nil {
				return nil, err
			}
			if !inFunction {
				m.varIndex[ops[1]] = len(m.variables)
				m.variables = append(m.variables, variable{id: ops[1], typeID: ops[0], storage: ops[2]})
			}

		case spirvbin.OpFunction:
			inFunction = true

		case spirvbin.OpFunctionEnd:
			inFunction = false

		case spirvbin.OpLoad:
			if err := need(3); err != nil {
				return nil, err
			}
			m.loads[ops[1]] = ops[2]
			if _, ok := m.varIndex[ops[2]]; ok {
				m.wholeLoads[ops[2]] = true
			}

		case spirvbin.OpAccessChain, spirvbin.OpInBoundsAccessChain:
			if err := need(4); err != nil {
				return nil, err
			}
			base := ops[2]
			if c, ok := m.constants[ops[3]]; ok {
				set, ok := m.accesses[base]
				if !ok {
					set = make(map[uint32]bool)
					m.accesses[base] = set
				}
				set[c.value[0]] = true
			}

		case spirvbin.OpSampledImage:
			if err := need(4); err != nil {
				return nil, err
			}
			m.samplings = append(m.samplings, sampledImage{image: m.loads[ops[2]], sampler: m.loads[ops[3]]})
		}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *module) addConstant(id uint32, c *constant) {
	m.constants[id] = c
	m.constOrder = append(m.constOrder, id)
}

func (m *module) validate() error {
	for _, v := range m.variables {
		t, ok := m.types[v.typeID]
		if !ok || t.op != spirvbin.OpTypePointer {
			return fmt.Errorf("variable %%%d has no pointer type", v.id)
		}
		if _, ok := m.types[t.elem]; !ok {
			return fmt.Errorf("variable %%%d points to undeclared type %%%d", v.id, t.elem)
		}
	}
	for _, t := range m.types {
		if t.op == spirvbin.OpTypeStruct {
			for _, mem := range t.members {
				if _, ok := m.types[mem]; !ok {
					return fmt.Errorf("struct %%%d has undeclared member type %%%d", t.id, mem)
				}
			}
		}
	}
	return nil
}

// pointee strips a pointer type.
func (m *module) pointee(typeID uint32) uint32 {
	if t, ok := m.types[typeID]; ok && t.op == spirvbin.OpTypePointer {
		return t.elem
	}
	return typeID
}

// baseOf strips pointers and arrays.
func (m *module) baseOf(typeID uint32) uint32 {
	id := m.pointee(typeID)
	for {
		t, ok := m.types[id]
		if !ok || (t.op != spirvbin.OpTypeArray && t.op != spirvbin.OpTypeRuntimeArray) {
			return id
		}
		id = t.elem
	}
}

func (m *module) variable(id uint32) (variable, bool) {
	i, ok := m.varIndex[id]
	if !ok {
		return variable{}, false
	}
	return m.variables[i], true
}

func (m *module) isBuiltin(v variable) bool {
	if _, ok := m.decoration(v.id, spirvbin.DecorationBuiltIn); ok {
		return true
	}
	base := m.baseOf(v.typeID)
	t := m.types[base]
	if t == nil || t.op != spirvbin.OpTypeStruct || len(t.members) == 0 {
		return false
	}
	for i := range t.members {
		if _, ok := m.memberDecoration(base, uint32(i), spirvbin.DecorationBuiltIn); !ok {
			return false
		}
	}
	return true
}

func (m *module) entryPoint(name string, model uint32) (*entryPoint, bool) {
	for _, ep := range m.entryPoints {
		if ep.name == name && ep.model == model {
			return ep, true
		}
	}
	return nil, false
}

// constValue returns the scalar value of a constant id.
func (m *module) constValue(id uint32) (uint32, bool) {
	c, ok := m.constants[id]
	if !ok {
		return 0, false
	}
	return c.value[0], true
}

func sortedKeys(set map[uint32]bool) []uint32 {
	out := make([]uint32, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
