// Package profile reads and writes translation profiles: a target plus its
// option set, in YAML or TOML.
//
// Both formats decode into the same structure. Sections that are absent
// keep the target's defaults; fields absent from a present section also
// keep their defaults.
package profile

import (
	"bytes"
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/glsl"
	"github.com/wippyai/spirv-cross/hlsl"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/spirv"
)

// Format is a profile serialization.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.InvalidInput(errors.PhaseParse, "unknown profile extension: "+path)
}

type Profile struct {
	Target     string      `yaml:"target"`
	EntryPoint string      `yaml:"entry_point,omitempty"`
	GLSL       GLSLProfile `yaml:"glsl"`
	HLSL       HLSLProfile `yaml:"hlsl"`
	MSL        MSLProfile  `yaml:"msl"`
}

type GLSLProfile struct {
	Options       glsl.Options `yaml:"options"`
	HeaderLines   []string     `yaml:"header_lines,omitempty"`
	FlattenBlocks []uint32     `yaml:"flatten_blocks,omitempty"`
}

type HLSLProfile struct {
	Options hlsl.Options `yaml:"options"`
}

// MSLProfile lists overrides as sequences; Options turns them into the
// keyed maps msl.Options carries.
type MSLProfile struct {
	Options          msl.Options               `yaml:"options"`
	VertexAttributes []VertexAttributeOverride `yaml:"vertex_attributes,omitempty"`
	ResourceBindings []ResourceBindingOverride `yaml:"resource_bindings,omitempty"`
}

type VertexAttributeOverride struct {
	Location  uint32 `yaml:"location"`
	BufferID  uint32 `yaml:"buffer_id"`
	Offset    uint32 `yaml:"offset,omitempty"`
	Stride    uint32 `yaml:"stride,omitempty"`
	Step      string `yaml:"step,omitempty"`
	Format    string `yaml:"format,omitempty"`
	ForceUsed bool   `yaml:"force_used,omitempty"`
}

type ResourceBindingOverride struct {
	Stage     string `yaml:"stage"`
	DescSet   uint32 `yaml:"desc_set"`
	Binding   uint32 `yaml:"binding"`
	BufferID  uint32 `yaml:"buffer_id,omitempty"`
	TextureID uint32 `yaml:"texture_id,omitempty"`
	SamplerID uint32 `yaml:"sampler_id,omitempty"`
	ForceUsed bool   `yaml:"force_used,omitempty"`
}

// Default returns a profile for target with every option at its default.
func Default(target spirv.Target) Profile {
	return Profile{
		Target: target.String(),
		GLSL:   GLSLProfile{Options: glsl.DefaultOptions()},
		HLSL:   HLSLProfile{Options: hlsl.DefaultOptions()},
		MSL:    MSLProfile{Options: msl.DefaultOptions()},
	}
}

// Load reads a profile file, choosing the format by extension.
func Load(path string) (Profile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Profile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "read profile")
	}
	return Decode(data, format)
}

// Decode parses a profile. The target field is required.
func Decode(data []byte, format Format) (Profile, error) {
	if format == TOML {
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return Profile{}, errors.ParseFailed("TOML profile", err)
		}
		// TOML goes through the YAML decoder so both formats share the
		// text decoding of option enums.
		if data, err = yaml.Marshal(tree.ToMap()); err != nil {
			return Profile{}, errors.ParseFailed("TOML profile", err)
		}
	} else if format != YAML {
		return Profile{}, errors.InvalidEnum(errors.PhaseParse, []string{"format"}, string(format), "profile.Format")
	}

	p := Default(spirv.TargetGLSL)
	p.Target = ""
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, errors.ParseFailed("profile", err)
	}
	if _, err := p.ParseTarget(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Encode serializes p.
func Encode(p Profile, format Format) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode profile")
	}
	switch format {
	case YAML:
		return data, nil
	case TOML:
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode profile")
		}
		tree, err := toml.TreeFromMap(m)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode profile")
		}
		s, err := tree.ToTomlString()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode profile")
		}
		return []byte(s), nil
	}
	return nil, errors.InvalidEnum(errors.PhaseParse, []string{"format"}, string(format), "profile.Format")
}

// ParseTarget returns the profile's target.
func (p Profile) ParseTarget() (spirv.Target, error) {
	if p.Target == "" {
		return 0, errors.InvalidInput(errors.PhaseParse, "profile has no target")
	}
	return spirv.ParseTarget(p.Target)
}

// Fingerprint is a canonical encoding of everything that affects the
// output of the profile's target, for cache keys.
func (p Profile) Fingerprint() ([]byte, error) {
	target, err := p.ParseTarget()
	if err != nil {
		return nil, err
	}
	var section any
	switch target {
	case spirv.TargetGLSL:
		section = p.GLSL
	case spirv.TargetHLSL:
		section = p.HLSL
	case spirv.TargetMSL:
		m := p.MSL
		m.VertexAttributes = slices.Clone(m.VertexAttributes)
		m.ResourceBindings = slices.Clone(m.ResourceBindings)
		slices.SortFunc(m.VertexAttributes, func(a, b VertexAttributeOverride) int {
			return cmp.Compare(a.Location, b.Location)
		})
		slices.SortFunc(m.ResourceBindings, func(a, b ResourceBindingOverride) int {
			return cmp.Or(
				strings.Compare(a.Stage, b.Stage),
				cmp.Compare(a.DescSet, b.DescSet),
				cmp.Compare(a.Binding, b.Binding),
			)
		})
		section = m
	}
	return yaml.Marshal(struct {
		Target     string `yaml:"target"`
		EntryPoint string `yaml:"entry_point"`
		Section    any    `yaml:"section"`
	}{target.String(), p.EntryPoint, section})
}
