package profile

import (
	"strconv"
	"strings"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/spirv"
)

var steps = map[string]msl.VertexAttributeStep{
	"":         msl.StepVertex,
	"vertex":   msl.StepVertex,
	"instance": msl.StepInstance,
}

var formats = map[string]msl.Format{
	"":       msl.FormatOther,
	"other":  msl.FormatOther,
	"uint8":  msl.FormatUint8,
	"uint16": msl.FormatUint16,
}

// parseStage accepts execution model names case-insensitively, e.g.
// "vertex" or "GlCompute".
func parseStage(s string) (spirv.ExecutionModel, bool) {
	for m := spirv.Vertex; m <= spirv.Kernel; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, true
		}
	}
	return 0, false
}

// Build returns the MSL options with the listed overrides keyed into
// maps. A location listed twice is an error.
func (m MSLProfile) Build() (msl.Options, error) {
	o := m.Options
	o.VertexAttributeOverrides = nil
	o.ResourceBindingOverrides = nil

	if len(m.VertexAttributes) > 0 {
		o.VertexAttributeOverrides = make(map[msl.VertexAttributeLocation]msl.VertexAttribute, len(m.VertexAttributes))
	}
	for i, a := range m.VertexAttributes {
		path := []string{"msl", "vertex_attributes", strconv.Itoa(i)}
		step, ok := steps[a.Step]
		if !ok {
			return msl.Options{}, errors.InvalidEnum(errors.PhaseParse, append(path, "step"), a.Step, "msl.VertexAttributeStep")
		}
		format, ok := formats[a.Format]
		if !ok {
			return msl.Options{}, errors.InvalidEnum(errors.PhaseParse, append(path, "format"), a.Format, "msl.Format")
		}
		loc := msl.VertexAttributeLocation(a.Location)
		if _, dup := o.VertexAttributeOverrides[loc]; dup {
			return msl.Options{}, errors.InvalidData(errors.PhaseParse, path, "duplicate vertex attribute location "+loc.String())
		}
		o.VertexAttributeOverrides[loc] = msl.VertexAttribute{
			BufferID:  a.BufferID,
			Offset:    a.Offset,
			Stride:    a.Stride,
			Step:      step,
			ForceUsed: a.ForceUsed,
			Format:    format,
		}
	}

	if len(m.ResourceBindings) > 0 {
		o.ResourceBindingOverrides = make(map[msl.ResourceBindingLocation]msl.ResourceBinding, len(m.ResourceBindings))
	}
	for i, b := range m.ResourceBindings {
		path := []string{"msl", "resource_bindings", strconv.Itoa(i)}
		stage, ok := parseStage(b.Stage)
		if !ok {
			return msl.Options{}, errors.InvalidEnum(errors.PhaseParse, append(path, "stage"), b.Stage, "spirv.ExecutionModel")
		}
		loc := msl.ResourceBindingLocation{Stage: stage, DescSet: b.DescSet, Binding: b.Binding}
		if _, dup := o.ResourceBindingOverrides[loc]; dup {
			return msl.Options{}, errors.InvalidData(errors.PhaseParse, path, "duplicate resource binding location")
		}
		o.ResourceBindingOverrides[loc] = msl.ResourceBinding{
			BufferID:  b.BufferID,
			TextureID: b.TextureID,
			SamplerID: b.SamplerID,
			ForceUsed: b.ForceUsed,
		}
	}
	return o, nil
}
