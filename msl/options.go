package msl

import (
	"cmp"
	"maps"
	"strconv"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/spirv"
)

// Platform is the Metal platform shaders are compiled for.
type Platform uint8

const (
	IOS Platform = iota
	MacOS
)

func (p Platform) String() string {
	switch p {
	case IOS:
		return "ios"
	case MacOS:
		return "macos"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	if p > MacOS {
		return nil, errors.InvalidEnum(errors.PhaseOptions, []string{"platform"}, uint8(p), "msl.Platform")
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ios":
		*p = IOS
	case "macos":
		*p = MacOS
	default:
		return errors.InvalidEnum(errors.PhaseOptions, []string{"platform"}, string(text), "msl.Platform")
	}
	return nil
}

// Version is a Metal Shading Language version.
type Version uint8

const (
	V1_0 Version = iota
	V1_1
	V1_2
	V2_0
	V2_1
)

var versions = [...]struct {
	name string
	raw  uint32
}{
	V1_0: {"1.0", 10000},
	V1_1: {"1.1", 10100},
	V1_2: {"1.2", 10200},
	V2_0: {"2.0", 20000},
	V2_1: {"2.1", 20100},
}

func (v Version) String() string {
	if int(v) < len(versions) {
		return versions[v].name
	}
	return "unknown"
}

// Raw returns the version as major*10000 + minor*100.
func (v Version) Raw() uint32 {
	if int(v) < len(versions) {
		return versions[v].raw
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	if int(v) >= len(versions) {
		return nil, errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, uint8(v), "msl.Version")
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	for i, known := range versions {
		if known.name == string(text) {
			*v = Version(i)
			return nil
		}
	}
	return errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, string(text), "msl.Version")
}

// VertexAttributeStep says whether an attribute advances per vertex or per
// instance.
type VertexAttributeStep uint8

const (
	StepVertex VertexAttributeStep = iota
	StepInstance
)

// Format is the vertex attribute format hint.
type Format uint32

const (
	FormatOther Format = iota
	FormatUint8
	FormatUint16
)

// VertexAttributeLocation keys a vertex attribute override.
type VertexAttributeLocation uint32

func (l VertexAttributeLocation) String() string {
	return strconv.FormatUint(uint64(l), 10)
}

// VertexAttribute overrides how the attribute at a location is fetched.
type VertexAttribute struct {
	BufferID  uint32              `yaml:"buffer_id" toml:"buffer_id"`
	Offset    uint32              `yaml:"offset" toml:"offset"`
	Stride    uint32              `yaml:"stride" toml:"stride"`
	Step      VertexAttributeStep `yaml:"step" toml:"step"`
	ForceUsed bool                `yaml:"force_used" toml:"force_used"`
	Format    Format              `yaml:"format" toml:"format"`
}

// ResourceBindingLocation keys a resource binding override.
type ResourceBindingLocation struct {
	Stage   spirv.ExecutionModel
	DescSet uint32
	Binding uint32
}

func (l ResourceBindingLocation) compare(o ResourceBindingLocation) int {
	return cmp.Or(
		cmp.Compare(l.Stage, o.Stage),
		cmp.Compare(l.DescSet, o.DescSet),
		cmp.Compare(l.Binding, o.Binding),
	)
}

// ResourceBinding assigns Metal argument indexes to a descriptor.
type ResourceBinding struct {
	BufferID  uint32 `yaml:"buffer_id" toml:"buffer_id"`
	TextureID uint32 `yaml:"texture_id" toml:"texture_id"`
	SamplerID uint32 `yaml:"sampler_id" toml:"sampler_id"`
	ForceUsed bool   `yaml:"force_used" toml:"force_used"`
}

// VertexOptions apply to vertex stages.
type VertexOptions struct {
	InvertY            bool `yaml:"invert_y" toml:"invert_y"`
	TransformClipSpace bool `yaml:"transform_clip_space" toml:"transform_clip_space"`
}

// Options for the MSL target.
//
// Each map key appears at most once; the core sees the overrides sorted by
// key.
type Options struct {
	Platform                    Platform      `yaml:"platform" toml:"platform"`
	Version                     Version       `yaml:"version" toml:"version"`
	Vertex                      VertexOptions `yaml:"vertex" toml:"vertex"`
	EnablePointSizeBuiltin      bool          `yaml:"enable_point_size_builtin" toml:"enable_point_size_builtin"`
	EnableRasterization         bool          `yaml:"enable_rasterization" toml:"enable_rasterization"`
	SwizzleBufferIndex          uint32        `yaml:"swizzle_buffer_index" toml:"swizzle_buffer_index"`
	IndirectParamsBufferIndex   uint32        `yaml:"indirect_params_buffer_index" toml:"indirect_params_buffer_index"`
	ShaderOutputBufferIndex     uint32        `yaml:"shader_output_buffer_index" toml:"shader_output_buffer_index"`
	BufferSizeBufferIndex       uint32        `yaml:"buffer_size_buffer_index" toml:"buffer_size_buffer_index"`
	CaptureOutputToBuffer       bool          `yaml:"capture_output_to_buffer" toml:"capture_output_to_buffer"`
	SwizzleTextureSamples       bool          `yaml:"swizzle_texture_samples" toml:"swizzle_texture_samples"`
	TessDomainOriginLowerLeft   bool          `yaml:"tess_domain_origin_lower_left" toml:"tess_domain_origin_lower_left"`
	ArgumentBuffers             bool          `yaml:"argument_buffers" toml:"argument_buffers"`
	PadFragmentOutputComponents bool          `yaml:"pad_fragment_output_components" toml:"pad_fragment_output_components"`

	VertexAttributeOverrides map[VertexAttributeLocation]VertexAttribute `yaml:"-" toml:"-"`
	ResourceBindingOverrides map[ResourceBindingLocation]ResourceBinding `yaml:"-" toml:"-"`
}

// DefaultOptions returns MSL 1.2 on macOS with rasterization and the point
// size builtin enabled.
func DefaultOptions() Options {
	return Options{
		Platform:                  MacOS,
		Version:                   V1_2,
		EnablePointSizeBuiltin:    true,
		EnableRasterization:       true,
		SwizzleBufferIndex:        30,
		IndirectParamsBufferIndex: 29,
		ShaderOutputBufferIndex:   28,
		BufferSizeBufferIndex:     25,
	}
}

func (o Options) validate() error {
	if o.Platform > MacOS {
		return errors.InvalidEnum(errors.PhaseOptions, []string{"platform"}, uint8(o.Platform), "msl.Platform")
	}
	if int(o.Version) >= len(versions) {
		return errors.InvalidEnum(errors.PhaseOptions, []string{"version"}, uint8(o.Version), "msl.Version")
	}
	for loc, a := range o.VertexAttributeOverrides {
		if a.Step > StepInstance {
			return errors.InvalidEnum(errors.PhaseOptions, []string{"vertex_attribute_overrides", loc.String(), "step"}, uint8(a.Step), "msl.VertexAttributeStep")
		}
		if a.Format > FormatUint16 {
			return errors.InvalidEnum(errors.PhaseOptions, []string{"vertex_attribute_overrides", loc.String(), "format"}, uint32(a.Format), "msl.Format")
		}
	}
	for loc := range o.ResourceBindingOverrides {
		if loc.Stage > spirv.Kernel {
			return errors.InvalidEnum(errors.PhaseOptions, []string{"resource_binding_overrides", "stage"}, uint8(loc.Stage), "spirv.ExecutionModel")
		}
	}
	return nil
}

// clone copies o with its own override maps.
func (o Options) clone() Options {
	o.VertexAttributeOverrides = maps.Clone(o.VertexAttributeOverrides)
	o.ResourceBindingOverrides = maps.Clone(o.ResourceBindingOverrides)
	return o
}

func (o Options) encode(r *abi.Record) error {
	r.Zero().
		SetBool("vertex_invert_y", o.Vertex.InvertY).
		SetBool("vertex_transform_clip_space", o.Vertex.TransformClipSpace).
		SetU8("platform", uint8(o.Platform)).
		SetU32("version", o.Version.Raw()).
		SetBool("enable_point_size_builtin", o.EnablePointSizeBuiltin).
		SetBool("disable_rasterization", !o.EnableRasterization).
		SetU32("swizzle_buffer_index", o.SwizzleBufferIndex).
		SetU32("indirect_params_buffer_index", o.IndirectParamsBufferIndex).
		SetU32("shader_output_buffer_index", o.ShaderOutputBufferIndex).
		SetU32("buffer_size_buffer_index", o.BufferSizeBufferIndex).
		SetBool("capture_output_to_buffer", o.CaptureOutputToBuffer).
		SetBool("swizzle_texture_samples", o.SwizzleTextureSamples).
		SetBool("tess_domain_origin_lower_left", o.TessDomainOriginLowerLeft).
		SetBool("argument_buffers", o.ArgumentBuffers).
		SetBool("pad_fragment_output_components", o.PadFragmentOutputComponents)
	return r.Err()
}
