// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/devblok/korures/asset"
)

// ShaderModuleInput is a decoded shader module and its hash.
type ShaderModuleInput struct {
	ID    asset.Hash
	Asset asset.ShaderModule
}

// MeshInput is a decoded mesh and its hash.
type MeshInput struct {
	ID    asset.Hash
	Asset asset.Mesh
}

// TextureInput is a decoded texture and its hash.
type TextureInput struct {
	ID    asset.Hash
	Asset asset.Texture
}

// ShaderInput is a decoded shader along with its stage modules.
type ShaderInput struct {
	ID       asset.Hash
	Asset    asset.Shader
	Vertex   ShaderModuleInput
	Fragment ShaderModuleInput
}

// MaterialInput is a decoded material along with its shader and
// every texture its parameters refer to.
type MaterialInput struct {
	ID       asset.Hash
	Asset    asset.Material
	Shader   ShaderInput
	Textures []TextureInput
}

// MeshRendererInput is everything a mesh renderer draws with.
type MeshRendererInput struct {
	Material MaterialInput
	Mesh     MeshInput
}

// AllocateShaderModule references a shader module, queueing its
// creation when it is new.
func (a *Allocator) AllocateShaderModule(id asset.Hash, module asset.ShaderModule) Token[ShaderModule] {
	return a.ShaderModules.incrementOrAllocate(id, func() (ShaderModule, asset.ShaderModule) {
		return ShaderModule{}, module
	})
}

// AllocateMesh references a mesh, queueing its creation when it is new.
func (a *Allocator) AllocateMesh(id asset.Hash, mesh asset.Mesh) Token[Mesh] {
	return a.Meshes.incrementOrAllocate(id, func() (Mesh, asset.Mesh) {
		return Mesh{}, mesh
	})
}

// AllocateTexture references a texture, queueing its creation when it is new.
func (a *Allocator) AllocateTexture(id asset.Hash, texture asset.Texture) Token[Texture] {
	return a.Textures.incrementOrAllocate(id, func() (Texture, asset.Texture) {
		return Texture{}, texture
	})
}

// AllocateShader references a shader. A new shader first references
// its two stage modules.
func (a *Allocator) AllocateShader(in ShaderInput) Token[Shader] {
	return a.Shaders.incrementOrAllocate(in.ID, func() (Shader, asset.Shader) {
		return Shader{
			Vertex:   a.AllocateShaderModule(in.Vertex.ID, in.Vertex.Asset),
			Fragment: a.AllocateShaderModule(in.Fragment.ID, in.Fragment.Asset),
		}, in.Asset
	})
}

// AllocateMaterial references a material. A new material first
// references its shader and textures. It fails with ErrMissingDependency
// when a texture parameter names a texture absent from in.Textures.
func (a *Allocator) AllocateMaterial(in MaterialInput) (Token[Material], error) {
	ids := make([]asset.Hash, len(in.Textures))
	for i, t := range in.Textures {
		ids[i] = t.ID
	}
	if err := checkTextures(in.ID, in.Asset, ids); err != nil {
		return Token[Material]{}, err
	}

	return a.Materials.incrementOrAllocate(in.ID, func() (Material, asset.Material) {
		shader := a.AllocateShader(in.Shader)
		textures := make([]Token[Texture], len(in.Textures))
		for i, t := range in.Textures {
			textures[i] = a.AllocateTexture(t.ID, t.Asset)
		}
		return a.material(shader, ids, textures, in.Asset), in.Asset
	}), nil
}

// AllocateMeshRenderer creates a mesh renderer, referencing its
// material and mesh.
func (a *Allocator) AllocateMeshRenderer(in MeshRendererInput) (Token[MeshRenderer], error) {
	material, err := a.AllocateMaterial(in.Material)
	if err != nil {
		return Token[MeshRenderer]{}, err
	}
	mesh := a.AllocateMesh(in.Mesh.ID, in.Mesh.Asset)
	return a.MeshRenderers.insert(material, mesh), nil
}

func checkTextures(id asset.Hash, material asset.Material, textures []asset.Hash) error {
	known := make(map[asset.Hash]struct{}, len(textures))
	for _, t := range textures {
		known[t] = struct{}{}
	}
	for _, t := range material.Textures() {
		if _, ok := known[t]; !ok {
			return fmt.Errorf("material %d: texture %d: %w", id, t, ErrMissingDependency)
		}
	}
	return nil
}

// material binds the asset parameters against resolved dependencies.
// ids and textures are parallel.
func (a *Allocator) material(shader Token[Shader], ids []asset.Hash, textures []Token[Texture], m asset.Material) Material {
	byID := make(map[asset.Hash]Token[Texture], len(ids))
	for i, id := range ids {
		byID[id] = textures[i]
	}
	params := make([]Parameter, len(m.Parameters))
	for i, p := range m.Parameters {
		switch p.Kind {
		case asset.UniformHost:
			params[i] = UniformHostParameter{Data: p.Data}
		case asset.UniformGPU:
			params[i] = UniformGPUParameter{Data: p.Data}
		case asset.TextureGPU:
			params[i] = TextureParameter{Texture: byID[p.Texture]}
		}
	}
	return Material{Shader: shader, Textures: textures, Parameters: params}
}
