package glsl

import (
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
)

// Version is a GLSL language version.
type Version uint8

const (
	V1_10 Version = iota
	V1_20
	V1_30
	V1_40
	V1_50
	V3_30
	V4_00
	V4_10
	V4_20
	V4_30
	V4_40
	V4_50
	V4_60
	V1_00Es
	V3_00Es
)

var versions = [...]struct {
	name   string
	number uint32
	es     bool
}{
	V1_10:   {"110", 110, false},
	V1_20:   {"120", 120, false},
	V1_30:   {"130", 130, false},
	V1_40:   {"140", 140, false},
	V1_50:   {"150", 150, false},
	V3_30:   {"330", 330, false},
	V4_00:   {"400", 400, false},
	V4_10:   {"410", 410, false},
	V4_20:   {"420", 420, false},
	V4_30:   {"430", 430, false},
	V4_40:   {"440", 440, false},
	V4_50:   {"450", 450, false},
	V4_60:   {"460", 460, false},
	V1_00Es: {"100es", 100, true},
	V3_00Es: {"300es", 300, true},
}

func (v Version) String() string {
	if int(v) < len(versions) {
		return versions[v].name
	}
	return "unknown"
}

// Raw returns the version number and whether it is an ES profile.
func (v Version) Raw() (number uint32, es bool) {
	if int(v) < len(versions) {
		return versions[v].number, versions[v].es
	}
	return 0, false
}

// ParseVersion accepts "450", "300es" and the like.
func ParseVersion(s string) (Version, error) {
	for i, v := range versions {
		if v.name == s {
			return Version(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, s, "glsl.Version")
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	if int(v) >= len(versions) {
		return nil, errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, uint8(v), "glsl.Version")
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Precision is a default precision qualifier.
type Precision uint8

const (
	PrecisionDontCare Precision = iota
	PrecisionLow
	PrecisionMedium
	PrecisionHigh
)

var precisionNames = [...]string{"dont_care", "low", "medium", "high"}

func (p Precision) String() string {
	if int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) {
	if int(p) >= len(precisionNames) {
		return nil, errors.InvalidEnum(errors.PhaseOptions, []string{"precision"}, uint8(p), "glsl.Precision")
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precision) UnmarshalText(text []byte) error {
	for i, name := range precisionNames {
		if name == string(text) {
			*p = Precision(i)
			return nil
		}
	}
	return errors.InvalidEnum(errors.PhaseOptions, []string{"precision"}, string(text), "glsl.Precision")
}

// VertexOptions apply to vertex stages.
type VertexOptions struct {
	InvertY                    bool `yaml:"invert_y" toml:"invert_y"`
	TransformClipSpace         bool `yaml:"transform_clip_space" toml:"transform_clip_space"`
	SupportNonzeroBaseInstance bool `yaml:"support_nonzero_base_instance" toml:"support_nonzero_base_instance"`
}

// FragmentOptions apply to fragment stages.
type FragmentOptions struct {
	DefaultFloatPrecision Precision `yaml:"default_float_precision" toml:"default_float_precision"`
	DefaultIntPrecision   Precision `yaml:"default_int_precision" toml:"default_int_precision"`
}

// Options for the GLSL target.
type Options struct {
	Version                              Version         `yaml:"version" toml:"version"`
	ForceTemporary                       bool            `yaml:"force_temporary" toml:"force_temporary"`
	VulkanSemantics                      bool            `yaml:"vulkan_semantics" toml:"vulkan_semantics"`
	SeparateShaderObjects                bool            `yaml:"separate_shader_objects" toml:"separate_shader_objects"`
	FlattenMultidimensionalArrays        bool            `yaml:"flatten_multidimensional_arrays" toml:"flatten_multidimensional_arrays"`
	Enable420PackExtension               bool            `yaml:"enable_420_pack_extension" toml:"enable_420_pack_extension"`
	EmitPushConstantAsUniformBuffer      bool            `yaml:"emit_push_constant_as_uniform_buffer" toml:"emit_push_constant_as_uniform_buffer"`
	EmitUniformBufferAsPlainUniforms     bool            `yaml:"emit_uniform_buffer_as_plain_uniforms" toml:"emit_uniform_buffer_as_plain_uniforms"`
	EmitLineDirectives                   bool            `yaml:"emit_line_directives" toml:"emit_line_directives"`
	EnableStorageImageQualifierDeduction bool            `yaml:"enable_storage_image_qualifier_deduction" toml:"enable_storage_image_qualifier_deduction"`
	ForceZeroInitializedVariables        bool            `yaml:"force_zero_initialized_variables" toml:"force_zero_initialized_variables"`
	Vertex                               VertexOptions   `yaml:"vertex" toml:"vertex"`
	Fragment                             FragmentOptions `yaml:"fragment" toml:"fragment"`
}

// DefaultOptions returns GLSL 4.50 with the core's defaults.
func DefaultOptions() Options {
	return Options{
		Version:                              V4_50,
		Enable420PackExtension:               true,
		EnableStorageImageQualifierDeduction: true,
		Vertex:                               VertexOptions{SupportNonzeroBaseInstance: true},
		Fragment: FragmentOptions{
			DefaultFloatPrecision: PrecisionMedium,
			DefaultIntPrecision:   PrecisionHigh,
		},
	}
}

func (o Options) validate() error {
	if int(o.Version) >= len(versions) {
		return errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, uint8(o.Version), "glsl.Version")
	}
	for path, p := range map[string]Precision{
		"fragment.default_float_precision": o.Fragment.DefaultFloatPrecision,
		"fragment.default_int_precision":   o.Fragment.DefaultIntPrecision,
	} {
		if p > PrecisionHigh {
			return errors.InvalidEnum(errors.PhaseOptions, []string{path}, uint8(p), "glsl.Precision")
		}
	}
	return nil
}

// encode writes o into a ScGlslCompilerOptions record.
func (o Options) encode(r *abi.Record) error {
	number, es := o.Version.Raw()
	r.Zero().
		SetBool("vertex_invert_y", o.Vertex.InvertY).
		SetBool("vertex_transform_clip_space", o.Vertex.TransformClipSpace).
		SetU32("version", number).
		SetBool("es", es).
		SetBool("vertex_support_nonzero_base_instance", o.Vertex.SupportNonzeroBaseInstance).
		SetU8("fragment_default_float_precision", uint8(o.Fragment.DefaultFloatPrecision)).
		SetU8("fragment_default_int_precision", uint8(o.Fragment.DefaultIntPrecision)).
		SetBool("force_temporary", o.ForceTemporary).
		SetBool("vulkan_semantics", o.VulkanSemantics).
		SetBool("separate_shader_objects", o.SeparateShaderObjects).
		SetBool("flatten_multidimensional_arrays", o.FlattenMultidimensionalArrays).
		SetBool("enable_420_pack_extension", o.Enable420PackExtension).
		SetBool("emit_push_constant_as_uniform_buffer", o.EmitPushConstantAsUniformBuffer).
		SetBool("emit_uniform_buffer_as_plain_uniforms", o.EmitUniformBufferAsPlainUniforms).
		SetBool("emit_line_directives", o.EmitLineDirectives).
		SetBool("enable_storage_image_qualifier_deduction", o.EnableStorageImageQualifierDeduction).
		SetBool("force_zero_initialized_variables", o.ForceZeroInitializedVariables)
	return r.Err()
}
