// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource keeps backend objects for render assets. Every
// distinct asset is created on the Device at most once, shared by all
// of its users through reference counting and destroyed when the last
// user lets go. Creation and destruction are deferred to the two
// per-frame steps of an Allocator.
package resource

import "github.com/devblok/korures/asset"

// Handle is an opaque backend object handle, zero when none.
type Handle uint64

// Header is shared by every hashed resource slot.
type Header struct {
	ID        asset.Hash
	Allocated bool
	Handle    Handle
}

// ShaderModule is a compiled shader stage.
type ShaderModule struct {
	Header
}

// Mesh is vertex and index buffer geometry.
type Mesh struct {
	Header
}

// Texture is a sampled image.
type Texture struct {
	Header
}

// Shader is a pipeline built from a vertex and a fragment module.
type Shader struct {
	Header
	Vertex   Token[ShaderModule]
	Fragment Token[ShaderModule]
}

// Material binds parameters against a shader.
type Material struct {
	Header
	Shader     Token[Shader]
	Textures   []Token[Texture]
	Parameters []Parameter
}

// MeshRenderer draws a mesh with a material. Mesh renderers are not
// shared, every call creates a new one.
type MeshRenderer struct {
	Allocated bool
	Handle    Handle
	Material  Token[Material]
	Mesh      Token[Mesh]

	released bool
}

// Parameter is a bound material parameter, one of
// UniformHostParameter, UniformGPUParameter or TextureParameter.
type Parameter interface {
	Kind() asset.ParameterKind
}

// UniformHostParameter is a uniform kept in host visible memory.
type UniformHostParameter struct {
	Data []byte
}

// Kind implements Parameter.
func (UniformHostParameter) Kind() asset.ParameterKind { return asset.UniformHost }

// UniformGPUParameter is a uniform kept in device local memory.
type UniformGPUParameter struct {
	Data []byte
}

// Kind implements Parameter.
func (UniformGPUParameter) Kind() asset.ParameterKind { return asset.UniformGPU }

// TextureParameter samples a texture.
type TextureParameter struct {
	Texture Token[Texture]
}

// Kind implements Parameter.
func (TextureParameter) Kind() asset.ParameterKind { return asset.TextureGPU }
