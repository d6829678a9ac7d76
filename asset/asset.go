// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package asset defines the payloads that back render resources,
// their content hashes and the binary codec used to store them.
// Payloads are plain values; they carry no backend state.
package asset

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Hash is a stable content identifier of an asset, computed
// either from its path in an asset database or from its bytes.
type Hash uint64

// HashPath computes the identifier of the asset stored under path.
func HashPath(path string) Hash {
	h := fnv.New64a()
	h.Write([]byte(path))
	return Hash(h.Sum64())
}

// HashBytes computes the identifier of an asset from its payload.
func HashBytes(data []byte) Hash {
	h := fnv.New64a()
	h.Write(data)
	return Hash(h.Sum64())
}

// Stage is the pipeline stage a shader module is compiled for.
type Stage uint8

// Shader module stages
const (
	VertexStage Stage = iota
	FragmentStage
	UnknownStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "unknown"
}

// ShaderModule is a compiled shader binary for one stage.
type ShaderModule struct {
	Stage Stage
	Code  []byte
}

// Size returns the payload size in bytes.
func (s ShaderModule) Size() int {
	return len(s.Code)
}

// Vertex is a mesh vertex as uploaded to vertex buffers.
type Vertex struct {
	Pos glm.Vec3
	UV  glm.Vec2
}

// vertexSize is the packed size of a Vertex: five float32 values.
const vertexSize = 5 * 4

// Mesh is indexed triangle geometry.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Size returns the payload size in bytes.
func (m Mesh) Size() int {
	return len(m.Vertices)*vertexSize + len(m.Indices)*4
}

// Texture is an uncompressed image, rows tightly packed.
type Texture struct {
	Width    uint32
	Height   uint32
	Depth    uint32
	Channels uint8
	Pixels   []byte
}

// Size returns the payload size in bytes.
func (t Texture) Size() int {
	return len(t.Pixels)
}

// LayoutParameter describes one binding slot of a shader layout.
type LayoutParameter uint8

// Shader layout parameter types
const (
	UniformBufferVertex LayoutParameter = iota
	UniformBufferFragment
	TextureFragment
)

// CompareOp is the depth comparison used by a shader.
type CompareOp uint8

// Depth comparison operators
const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

// ShaderConfiguration holds fixed pipeline state of a shader.
type ShaderConfiguration struct {
	ZTest   bool
	ZWrite  bool
	Compare CompareOp
}

// Shader is a graphics pipeline description. The stage modules
// it uses are dependencies, not part of the payload.
type Shader struct {
	Parameters     []LayoutParameter
	ExecutionOrder uint32
	Configuration  ShaderConfiguration
}

// Size returns the payload size in bytes.
func (s Shader) Size() int {
	return len(s.Parameters) + 8
}

// ParameterKind tags the variant held by a Parameter.
type ParameterKind uint8

// Material parameter kinds
const (
	UniformHost ParameterKind = iota
	UniformGPU
	TextureGPU
)

func (k ParameterKind) String() string {
	switch k {
	case UniformHost:
		return "uniform_host"
	case UniformGPU:
		return "uniform_gpu"
	case TextureGPU:
		return "texture_gpu"
	}
	return "unknown"
}

// Parameter is one material parameter. Uniform parameters carry
// their initial bytes in Data, texture parameters name the texture.
type Parameter struct {
	Kind    ParameterKind
	Data    []byte
	Texture Hash
}

// Material is an ordered list of parameters bound against a shader layout.
type Material struct {
	Parameters []Parameter
}

// Size returns the payload size in bytes.
func (m Material) Size() int {
	var size int
	for _, p := range m.Parameters {
		size += len(p.Data) + 8
	}
	return size
}

// Textures returns the textures referenced by the material, in parameter order.
func (m Material) Textures() []Hash {
	var textures []Hash
	for _, p := range m.Parameters {
		if p.Kind == TextureGPU {
			textures = append(textures, p.Texture)
		}
	}
	return textures
}

// MeshRenderer is a declared pairing of a material with a mesh. Both
// are dependencies, the payload only keeps the declared name.
type MeshRenderer struct {
	Name string
}

// Size returns the payload size in bytes.
func (r MeshRenderer) Size() int {
	return len(r.Name)
}

// DependencyRecord lists the direct dependencies of one asset.
// Only the fields relevant to the asset's kind are set: a material
// names its shader and textures, a shader its two stage modules and
// a mesh renderer its material and mesh.
type DependencyRecord struct {
	Shader   Hash
	Vertex   Hash
	Fragment Hash
	Textures []Hash
	Material Hash
	Mesh     Hash
}

// Encode serializes an asset payload or a dependency record.
func Encode(v interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(v); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

// Decode deserializes bytes produced by Encode.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}
