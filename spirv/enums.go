package spirv

import (
	"strconv"

	"github.com/wippyai/spirv-cross/errors"
)

// ExecutionModel is the pipeline stage of an entry point.
type ExecutionModel uint8

const (
	Vertex ExecutionModel = iota
	TessellationControl
	TessellationEvaluation
	Geometry
	Fragment
	GlCompute
	Kernel
)

var executionModelNames = [...]string{
	Vertex:                 "Vertex",
	TessellationControl:    "TessellationControl",
	TessellationEvaluation: "TessellationEvaluation",
	Geometry:               "Geometry",
	Fragment:               "Fragment",
	GlCompute:              "GlCompute",
	Kernel:                 "Kernel",
}

func (m ExecutionModel) String() string {
	if int(m) < len(executionModelNames) {
		return executionModelNames[m]
	}
	return "ExecutionModel(" + strconv.Itoa(int(m)) + ")"
}

// Raw returns the SPIR-V value of m.
func (m ExecutionModel) Raw() uint32 { return uint32(m) }

// ExecutionModelFromRaw maps a SPIR-V execution model.
func ExecutionModelFromRaw(raw uint32) (ExecutionModel, error) {
	if raw < uint32(len(executionModelNames)) {
		return ExecutionModel(raw), nil
	}
	return 0, errors.InvalidEnum(errors.PhaseMarshal, []string{"execution_model"}, raw, "ExecutionModel")
}

// Decoration is a SPIR-V decoration. Values are the SPIR-V raw values.
type Decoration uint32

const (
	DecorationRelaxedPrecision            Decoration = 0
	DecorationSpecID                      Decoration = 1
	DecorationBlock                       Decoration = 2
	DecorationBufferBlock                 Decoration = 3
	DecorationRowMajor                    Decoration = 4
	DecorationColMajor                    Decoration = 5
	DecorationArrayStride                 Decoration = 6
	DecorationMatrixStride                Decoration = 7
	DecorationGLSLShared                  Decoration = 8
	DecorationGLSLPacked                  Decoration = 9
	DecorationCPacked                     Decoration = 10
	DecorationBuiltIn                     Decoration = 11
	DecorationNoPerspective               Decoration = 13
	DecorationFlat                        Decoration = 14
	DecorationPatch                       Decoration = 15
	DecorationCentroid                    Decoration = 16
	DecorationSample                      Decoration = 17
	DecorationInvariant                   Decoration = 18
	DecorationRestrict                    Decoration = 19
	DecorationAliased                     Decoration = 20
	DecorationVolatile                    Decoration = 21
	DecorationConstant                    Decoration = 22
	DecorationCoherent                    Decoration = 23
	DecorationNonWritable                 Decoration = 24
	DecorationNonReadable                 Decoration = 25
	DecorationUniform                     Decoration = 26
	DecorationSaturatedConversion         Decoration = 28
	DecorationStream                      Decoration = 29
	DecorationLocation                    Decoration = 30
	DecorationComponent                   Decoration = 31
	DecorationIndex                       Decoration = 32
	DecorationBinding                     Decoration = 33
	DecorationDescriptorSet               Decoration = 34
	DecorationOffset                      Decoration = 35
	DecorationXfbBuffer                   Decoration = 36
	DecorationXfbStride                   Decoration = 37
	DecorationFuncParamAttr               Decoration = 38
	DecorationFPRoundingMode              Decoration = 39
	DecorationFPFastMathMode              Decoration = 40
	DecorationLinkageAttributes           Decoration = 41
	DecorationNoContraction               Decoration = 42
	DecorationInputAttachmentIndex        Decoration = 43
	DecorationAlignment                   Decoration = 44
	DecorationMaxByteOffset               Decoration = 45
	DecorationAlignmentID                 Decoration = 46
	DecorationMaxByteOffsetID             Decoration = 47
	DecorationExplicitInterpAMD           Decoration = 4999
	DecorationOverrideCoverageNV          Decoration = 5248
	DecorationPassthroughNV               Decoration = 5250
	DecorationViewportRelativeNV          Decoration = 5252
	DecorationSecondaryViewportRelativeNV Decoration = 5256
)

var decorationNames = map[Decoration]string{
	DecorationRelaxedPrecision:            "RelaxedPrecision",
	DecorationSpecID:                      "SpecId",
	DecorationBlock:                       "Block",
	DecorationBufferBlock:                 "BufferBlock",
	DecorationRowMajor:                    "RowMajor",
	DecorationColMajor:                    "ColMajor",
	DecorationArrayStride:                 "ArrayStride",
	DecorationMatrixStride:                "MatrixStride",
	DecorationGLSLShared:                  "GLSLShared",
	DecorationGLSLPacked:                  "GLSLPacked",
	DecorationCPacked:                     "CPacked",
	DecorationBuiltIn:                     "BuiltIn",
	DecorationNoPerspective:               "NoPerspective",
	DecorationFlat:                        "Flat",
	DecorationPatch:                       "Patch",
	DecorationCentroid:                    "Centroid",
	DecorationSample:                      "Sample",
	DecorationInvariant:                   "Invariant",
	DecorationRestrict:                    "Restrict",
	DecorationAliased:                     "Aliased",
	DecorationVolatile:                    "Volatile",
	DecorationConstant:                    "Constant",
	DecorationCoherent:                    "Coherent",
	DecorationNonWritable:                 "NonWritable",
	DecorationNonReadable:                 "NonReadable",
	DecorationUniform:                     "Uniform",
	DecorationSaturatedConversion:         "SaturatedConversion",
	DecorationStream:                      "Stream",
	DecorationLocation:                    "Location",
	DecorationComponent:                   "Component",
	DecorationIndex:                       "Index",
	DecorationBinding:                     "Binding",
	DecorationDescriptorSet:               "DescriptorSet",
	DecorationOffset:                      "Offset",
	DecorationXfbBuffer:                   "XfbBuffer",
	DecorationXfbStride:                   "XfbStride",
	DecorationFuncParamAttr:               "FuncParamAttr",
	DecorationFPRoundingMode:              "FPRoundingMode",
	DecorationFPFastMathMode:              "FPFastMathMode",
	DecorationLinkageAttributes:           "LinkageAttributes",
	DecorationNoContraction:               "NoContraction",
	DecorationInputAttachmentIndex:        "InputAttachmentIndex",
	DecorationAlignment:                   "Alignment",
	DecorationMaxByteOffset:               "MaxByteOffset",
	DecorationAlignmentID:                 "AlignmentId",
	DecorationMaxByteOffsetID:             "MaxByteOffsetId",
	DecorationExplicitInterpAMD:           "ExplicitInterpAMD",
	DecorationOverrideCoverageNV:          "OverrideCoverageNV",
	DecorationPassthroughNV:               "PassthroughNV",
	DecorationViewportRelativeNV:          "ViewportRelativeNV",
	DecorationSecondaryViewportRelativeNV: "SecondaryViewportRelativeNV",
}

func (d Decoration) String() string {
	if n, ok := decorationNames[d]; ok {
		return n
	}
	return "Decoration(" + strconv.FormatUint(uint64(d), 10) + ")"
}

// Decorations returns every decoration in ascending raw order.
func Decorations() []Decoration {
	out := make([]Decoration, 0, len(decorationNames))
	for d := Decoration(0); d <= DecorationSecondaryViewportRelativeNV; d++ {
		if _, ok := decorationNames[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// DecorationFromRaw maps a SPIR-V decoration.
func DecorationFromRaw(raw uint32) (Decoration, error) {
	if _, ok := decorationNames[Decoration(raw)]; ok {
		return Decoration(raw), nil
	}
	return 0, errors.InvalidEnum(errors.PhaseMarshal, []string{"decoration"}, raw, "Decoration")
}

// BaseType is the scalar or aggregate category of a type.
type BaseType uint8

const (
	BaseTypeUnknown BaseType = iota
	BaseTypeVoid
	BaseTypeBoolean
	BaseTypeSByte
	BaseTypeUByte
	BaseTypeShort
	BaseTypeUShort
	BaseTypeInt
	BaseTypeUInt
	BaseTypeInt64
	BaseTypeUInt64
	BaseTypeAtomicCounter
	BaseTypeHalf
	BaseTypeFloat
	BaseTypeDouble
	BaseTypeStruct
	BaseTypeImage
	BaseTypeSampledImage
	BaseTypeSampler
)

var baseTypeNames = [...]string{
	"Unknown", "Void", "Boolean", "SByte", "UByte", "Short", "UShort", "Int", "UInt",
	"Int64", "UInt64", "AtomicCounter", "Half", "Float", "Double", "Struct", "Image",
	"SampledImage", "Sampler",
}

func (b BaseType) String() string {
	if int(b) < len(baseTypeNames) {
		return baseTypeNames[b]
	}
	return "BaseType(" + strconv.Itoa(int(b)) + ")"
}

// BaseTypeFromRaw maps the core's ScType.type value.
func BaseTypeFromRaw(raw uint32) (BaseType, error) {
	if raw < uint32(len(baseTypeNames)) {
		return BaseType(raw), nil
	}
	return 0, errors.InvalidEnum(errors.PhaseMarshal, []string{"type"}, raw, "BaseType")
}
