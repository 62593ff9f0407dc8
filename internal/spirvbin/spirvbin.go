// Package spirvbin holds the SPIR-V binary encoding shared by the reference
// core's parser and the test assembler.
package spirvbin

import (
	"fmt"
	"unicode/utf8"
)

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

// HeaderWords is the size of the module header.
const HeaderWords = 5

// Version1_0 is the header version word for SPIR-V 1.0.
const Version1_0 uint32 = 0x00010000

// Op is an instruction opcode.
type Op uint16

const (
	OpNop                   Op = 0
	OpSource                Op = 3
	OpName                  Op = 5
	OpMemberName            Op = 6
	OpExtInstImport         Op = 11
	OpMemoryModel           Op = 14
	OpEntryPoint            Op = 15
	OpExecutionMode         Op = 16
	OpCapability            Op = 17
	OpTypeVoid              Op = 19
	OpTypeBool              Op = 20
	OpTypeInt               Op = 21
	OpTypeFloat             Op = 22
	OpTypeVector            Op = 23
	OpTypeMatrix            Op = 24
	OpTypeImage             Op = 25
	OpTypeSampler           Op = 26
	OpTypeSampledImage      Op = 27
	OpTypeArray             Op = 28
	OpTypeRuntimeArray      Op = 29
	OpTypeStruct            Op = 30
	OpTypePointer           Op = 32
	OpTypeFunction          Op = 33
	OpConstantTrue          Op = 41
	OpConstantFalse         Op = 42
	OpConstant              Op = 43
	OpConstantComposite     Op = 44
	OpSpecConstantTrue      Op = 48
	OpSpecConstantFalse     Op = 49
	OpSpecConstant          Op = 50
	OpSpecConstantComposite Op = 51
	OpFunction              Op = 54
	OpFunctionEnd           Op = 56
	OpVariable              Op = 59
	OpLoad                  Op = 61
	OpStore                 Op = 62
	OpAccessChain           Op = 65
	OpInBoundsAccessChain   Op = 66
	OpDecorate              Op = 71
	OpMemberDecorate        Op = 72
	OpSampledImage          Op = 86
	OpLabel                 Op = 248
	OpReturn                Op = 253
)

// Storage classes.
const (
	StorageUniformConstant uint32 = 0
	StorageInput           uint32 = 1
	StorageUniform         uint32 = 2
	StorageOutput          uint32 = 3
	StorageWorkgroup       uint32 = 4
	StoragePrivate         uint32 = 6
	StorageFunction        uint32 = 7
	StoragePushConstant    uint32 = 9
	StorageAtomicCounter   uint32 = 10
	StorageImage           uint32 = 11
	StorageStorageBuffer   uint32 = 12
)

// Decoration numbers the parser interprets itself.
const (
	DecorationSpecID       uint32 = 1
	DecorationBlock        uint32 = 2
	DecorationBufferBlock  uint32 = 3
	DecorationArrayStride  uint32 = 6
	DecorationMatrixStride uint32 = 7
	DecorationBuiltIn      uint32 = 11
	DecorationLocation     uint32 = 30
	DecorationBinding      uint32 = 33
	DecorationDescriptor   uint32 = 34
	DecorationOffset       uint32 = 35
)

// Builtins the parser interprets.
const (
	BuiltInPosition      uint32 = 0
	BuiltInWorkgroupSize uint32 = 25
)

// ExecutionModeLocalSize carries the fixed workgroup size.
const ExecutionModeLocalSize uint32 = 17

// Image dimension for subpass inputs.
const DimSubpassData uint32 = 6

// Instruction is one decoded instruction; Operands excludes the opcode word.
type Instruction struct {
	Op       Op
	Operands []uint32
	Offset   int
}

// Header is the decoded module header.
type Header struct {
	Version   uint32
	Generator uint32
	Bound     uint32
}

// Decode validates the header and splits the stream into instructions.
func Decode(words []uint32) (Header, []Instruction, error) {
	if len(words) < HeaderWords {
		return Header{}, nil, fmt.Errorf("SPIR-V file too small")
	}
	if words[0] != Magic {
		return Header{}, nil, fmt.Errorf("invalid SPIR-V magic number %#08x", words[0])
	}
	h := Header{Version: words[1], Generator: words[2], Bound: words[3]}

	var out []Instruction
	for i := HeaderWords; i < len(words); {
		count := int(words[i] >> 16)
		op := Op(words[i] & 0xffff)
		if count == 0 {
			return h, nil, fmt.Errorf("instruction at word %d has zero length", i)
		}
		if i+count > len(words) {
			return h, nil, fmt.Errorf("instruction at word %d runs past end of module", i)
		}
		out = append(out, Instruction{Op: op, Operands: words[i+1 : i+count], Offset: i})
		i += count
	}
	return h, out, nil
}

// DecodeString reads a NUL-terminated literal string packed little-endian
// into words. It returns the string and the number of words consumed.
func DecodeString(words []uint32) (string, int, error) {
	var b []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				s := string(b)
				if !utf8.ValidString(s) {
					return "", 0, fmt.Errorf("literal string is not valid UTF-8")
				}
				return s, i + 1, nil
			}
			b = append(b, c)
		}
	}
	return "", 0, fmt.Errorf("unterminated literal string")
}

// EncodeString packs s into words with a NUL terminator and zero padding.
func EncodeString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
	}
	return words
}

// Encode builds one instruction word stream.
func Encode(op Op, operands ...uint32) []uint32 {
	out := make([]uint32, 0, len(operands)+1)
	out = append(out, uint32(len(operands)+1)<<16|uint32(op))
	return append(out, operands...)
}
