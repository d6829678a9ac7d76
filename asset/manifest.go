// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file an asset directory declares its
// composite assets in.
const ManifestName = "manifest.yaml"

// Manifest declares the composite assets of a directory. Leaf
// assets (modules, meshes, textures) are files of their own and
// referenced by their path relative to the directory.
type Manifest struct {
	Shaders   []ShaderDecl   `yaml:"shaders"`
	Materials []MaterialDecl `yaml:"materials"`
	Renderers []RendererDecl `yaml:"renderers"`
}

// ShaderDecl declares a shader from two compiled modules
type ShaderDecl struct {
	Name       string   `yaml:"name"`
	Vertex     string   `yaml:"vertex"`
	Fragment   string   `yaml:"fragment"`
	Parameters []string `yaml:"parameters"`
	Order      uint32   `yaml:"order"`
	ZTest      bool     `yaml:"ztest"`
	ZWrite     bool     `yaml:"zwrite"`
	Compare    string   `yaml:"compare"`
}

// MaterialDecl declares a material against a shader
type MaterialDecl struct {
	Name       string          `yaml:"name"`
	Shader     string          `yaml:"shader"`
	Parameters []ParameterDecl `yaml:"parameters"`
}

// RendererDecl declares a mesh renderer drawing a mesh with a material
type RendererDecl struct {
	Name     string `yaml:"name"`
	Material string `yaml:"material"`
	Mesh     string `yaml:"mesh"`
}

// ParameterDecl is one material parameter. Uniforms list their
// initial value as floats, textures name the texture file.
type ParameterDecl struct {
	Kind    string    `yaml:"kind"`
	Floats  []float32 `yaml:"floats"`
	Texture string    `yaml:"texture"`
}

var (
	layoutParameters = map[string]LayoutParameter{
		"uniform_vertex":   UniformBufferVertex,
		"uniform_fragment": UniformBufferFragment,
		"texture_fragment": TextureFragment,
	}
	compareOps = map[string]CompareOp{
		"":                 CompareLess,
		"never":            CompareNever,
		"less":             CompareLess,
		"equal":            CompareEqual,
		"less_or_equal":    CompareLessOrEqual,
		"greater":          CompareGreater,
		"not_equal":        CompareNotEqual,
		"greater_or_equal": CompareGreaterOrEqual,
		"always":           CompareAlways,
	}
	parameterKinds = map[string]ParameterKind{
		"uniform_host": UniformHost,
		"uniform_gpu":  UniformGPU,
		"texture":      TextureGPU,
	}
)

// ReadManifest decodes a manifest
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return Manifest{}, err
	}
	return m, nil
}

// Shader builds the shader payload and its dependency record
func (d ShaderDecl) Shader() (Shader, DependencyRecord, error) {
	shader := Shader{
		ExecutionOrder: d.Order,
		Configuration:  ShaderConfiguration{ZTest: d.ZTest, ZWrite: d.ZWrite},
	}
	for _, p := range d.Parameters {
		layout, ok := layoutParameters[p]
		if !ok {
			return Shader{}, DependencyRecord{}, fmt.Errorf("shader %s: unknown parameter %q", d.Name, p)
		}
		shader.Parameters = append(shader.Parameters, layout)
	}
	compare, ok := compareOps[d.Compare]
	if !ok {
		return Shader{}, DependencyRecord{}, fmt.Errorf("shader %s: unknown compare op %q", d.Name, d.Compare)
	}
	shader.Configuration.Compare = compare

	deps := DependencyRecord{Vertex: HashPath(d.Vertex), Fragment: HashPath(d.Fragment)}
	return shader, deps, nil
}

// Material builds the material payload and its dependency record.
// Every texture is listed once in the record, in order of first use.
func (d MaterialDecl) Material() (Material, DependencyRecord, error) {
	var material Material
	deps := DependencyRecord{Shader: HashPath(d.Shader)}
	seen := make(map[Hash]struct{})
	for _, p := range d.Parameters {
		kind, ok := parameterKinds[p.Kind]
		if !ok {
			return Material{}, DependencyRecord{}, fmt.Errorf("material %s: unknown parameter kind %q", d.Name, p.Kind)
		}
		param := Parameter{Kind: kind}
		if kind == TextureGPU {
			param.Texture = HashPath(p.Texture)
			if _, ok := seen[param.Texture]; !ok {
				seen[param.Texture] = struct{}{}
				deps.Textures = append(deps.Textures, param.Texture)
			}
		} else {
			param.Data = floatBytes(p.Floats)
		}
		material.Parameters = append(material.Parameters, param)
	}
	return material, deps, nil
}

// MeshRenderer builds the mesh renderer payload and its dependency record
func (d RendererDecl) MeshRenderer() (MeshRenderer, DependencyRecord) {
	return MeshRenderer{Name: d.Name}, DependencyRecord{Material: HashPath(d.Material), Mesh: HashPath(d.Mesh)}
}

func floatBytes(floats []float32) []byte {
	data := make([]byte, 4*len(floats))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(f))
	}
	return data
}
