package hlsl

import (
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
)

// ShaderModel is an HLSL shader model.
type ShaderModel uint8

const (
	V3_0 ShaderModel = iota
	V4_0
	V4_0L9_0
	V4_0L9_1
	V4_0L9_3
	V4_1
	V5_0
	V5_1
	V6_0
)

var shaderModels = [...]struct {
	name string
	raw  int32
}{
	V3_0:     {"3.0", 30},
	V4_0:     {"4.0", 40},
	V4_0L9_0: {"4.0_level_9_0", 40},
	V4_0L9_1: {"4.0_level_9_1", 40},
	V4_0L9_3: {"4.0_level_9_3", 40},
	V4_1:     {"4.1", 41},
	V5_0:     {"5.0", 50},
	V5_1:     {"5.1", 51},
	V6_0:     {"6.0", 60},
}

func (m ShaderModel) String() string {
	if int(m) < len(shaderModels) {
		return shaderModels[m].name
	}
	return "unknown"
}

// Raw returns the numeric model the core expects. The level 9 feature
// levels all map to 40.
func (m ShaderModel) Raw() int32 {
	if int(m) < len(shaderModels) {
		return shaderModels[m].raw
	}
	return 0
}

// ParseShaderModel accepts "5.0", "4.0_level_9_3" and the like.
func ParseShaderModel(s string) (ShaderModel, error) {
	for i, m := range shaderModels {
		if m.name == s {
			return ShaderModel(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseOptions, []string{"shader_model"}, s, "hlsl.ShaderModel")
}

// MarshalText implements encoding.TextMarshaler.
func (m ShaderModel) MarshalText() ([]byte, error) {
	if int(m) >= len(shaderModels) {
		return nil, errors.InvalidEnum(errors.PhaseOptions, []string{"shader_model"}, uint8(m), "hlsl.ShaderModel")
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ShaderModel) UnmarshalText(text []byte) error {
	parsed, err := ParseShaderModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// VertexOptions apply to vertex stages.
type VertexOptions struct {
	InvertY            bool `yaml:"invert_y" toml:"invert_y"`
	TransformClipSpace bool `yaml:"transform_clip_space" toml:"transform_clip_space"`
}

// Options for the HLSL target.
type Options struct {
	ShaderModel                ShaderModel   `yaml:"shader_model" toml:"shader_model"`
	PointSizeCompat            bool          `yaml:"point_size_compat" toml:"point_size_compat"`
	PointCoordCompat           bool          `yaml:"point_coord_compat" toml:"point_coord_compat"`
	ForceStorageBufferAsUAV    bool          `yaml:"force_storage_buffer_as_uav" toml:"force_storage_buffer_as_uav"`
	NonwritableUAVTextureAsSRV bool          `yaml:"nonwritable_uav_texture_as_srv" toml:"nonwritable_uav_texture_as_srv"`
	Vertex                     VertexOptions `yaml:"vertex" toml:"vertex"`
}

// DefaultOptions returns shader model 3.0 with every toggle off.
func DefaultOptions() Options {
	return Options{ShaderModel: V3_0}
}

func (o Options) encode(r *abi.Record) error {
	if int(o.ShaderModel) >= len(shaderModels) {
		return errors.InvalidEnum(errors.PhaseOptions, []string{"shader_model"}, uint8(o.ShaderModel), "hlsl.ShaderModel")
	}
	r.Zero().
		SetI32("shader_model", o.ShaderModel.Raw()).
		SetBool("vertex_invert_y", o.Vertex.InvertY).
		SetBool("vertex_transform_clip_space", o.Vertex.TransformClipSpace).
		SetBool("point_size_compat", o.PointSizeCompat).
		SetBool("point_coord_compat", o.PointCoordCompat).
		SetBool("force_storage_buffer_as_uav", o.ForceStorageBufferAsUAV).
		SetBool("nonwritable_uav_texture_as_srv", o.NonwritableUAVTextureAsSRV)
	return r.Err()
}
