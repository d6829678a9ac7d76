// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/devblok/korures/asset"
)

// LoadShaderModule references a shader module by hash, fetching it
// from the store when it is not present yet.
func (a *Allocator) LoadShaderModule(id asset.Hash) (Token[ShaderModule], error) {
	if tok, ok := a.ShaderModules.increment(id); ok {
		return tok, nil
	}
	module, err := fetch[asset.ShaderModule](a.store, ShaderModuleKind, id)
	if err != nil {
		return Token[ShaderModule]{}, err
	}
	return a.AllocateShaderModule(id, module), nil
}

// LoadMesh references a mesh by hash, fetching it from the store
// when it is not present yet.
func (a *Allocator) LoadMesh(id asset.Hash) (Token[Mesh], error) {
	if tok, ok := a.Meshes.increment(id); ok {
		return tok, nil
	}
	mesh, err := fetch[asset.Mesh](a.store, MeshKind, id)
	if err != nil {
		return Token[Mesh]{}, err
	}
	return a.AllocateMesh(id, mesh), nil
}

// LoadTexture references a texture by hash, fetching it from the
// store when it is not present yet.
func (a *Allocator) LoadTexture(id asset.Hash) (Token[Texture], error) {
	if tok, ok := a.Textures.increment(id); ok {
		return tok, nil
	}
	texture, err := fetch[asset.Texture](a.store, TextureKind, id)
	if err != nil {
		return Token[Texture]{}, err
	}
	return a.AllocateTexture(id, texture), nil
}

// LoadShader references a shader by hash. A shader not present yet is
// fetched together with its dependency record and its stage modules
// are loaded first.
func (a *Allocator) LoadShader(id asset.Hash) (Token[Shader], error) {
	if tok, ok := a.Shaders.increment(id); ok {
		return tok, nil
	}
	shader, err := fetch[asset.Shader](a.store, ShaderKind, id)
	if err != nil {
		return Token[Shader]{}, err
	}
	deps, err := fetchDependencies(a.store, ShaderKind, id)
	if err != nil {
		return Token[Shader]{}, err
	}

	vertex, err := a.LoadShaderModule(deps.Vertex)
	if err != nil {
		return Token[Shader]{}, fmt.Errorf("shader %d: %w", id, err)
	}
	fragment, err := a.LoadShaderModule(deps.Fragment)
	if err != nil {
		a.ReleaseShaderModule(vertex)
		return Token[Shader]{}, fmt.Errorf("shader %d: %w", id, err)
	}

	return a.Shaders.incrementOrAllocate(id, func() (Shader, asset.Shader) {
		return Shader{Vertex: vertex, Fragment: fragment}, shader
	}), nil
}

// LoadMaterial references a material by hash. A material not present
// yet is fetched together with its dependency record, then its shader
// and textures are loaded first. A failed load releases whatever it
// had referenced, leaving every counter as it was.
func (a *Allocator) LoadMaterial(id asset.Hash) (Token[Material], error) {
	if tok, ok := a.Materials.increment(id); ok {
		return tok, nil
	}
	material, err := fetch[asset.Material](a.store, MaterialKind, id)
	if err != nil {
		return Token[Material]{}, err
	}
	deps, err := fetchDependencies(a.store, MaterialKind, id)
	if err != nil {
		return Token[Material]{}, err
	}
	if err := checkTextures(id, material, deps.Textures); err != nil {
		return Token[Material]{}, err
	}

	shader, err := a.LoadShader(deps.Shader)
	if err != nil {
		return Token[Material]{}, fmt.Errorf("material %d: %w", id, err)
	}
	textures := make([]Token[Texture], 0, len(deps.Textures))
	for _, t := range deps.Textures {
		tok, err := a.LoadTexture(t)
		if err != nil {
			for _, loaded := range textures {
				a.ReleaseTexture(loaded)
			}
			a.ReleaseShader(shader)
			return Token[Material]{}, fmt.Errorf("material %d: %w", id, err)
		}
		textures = append(textures, tok)
	}

	return a.Materials.incrementOrAllocate(id, func() (Material, asset.Material) {
		return a.material(shader, deps.Textures, textures, material), material
	}), nil
}

// LoadMeshRenderer creates a mesh renderer from a material and a mesh
// hash, loading whichever is not present yet.
func (a *Allocator) LoadMeshRenderer(material, mesh asset.Hash) (Token[MeshRenderer], error) {
	mat, err := a.LoadMaterial(material)
	if err != nil {
		return Token[MeshRenderer]{}, err
	}
	me, err := a.LoadMesh(mesh)
	if err != nil {
		a.ReleaseMaterial(mat)
		return Token[MeshRenderer]{}, err
	}
	return a.MeshRenderers.insert(mat, me), nil
}

// LoadDeclaredMeshRenderer creates the mesh renderer declared under id,
// whose dependency record names its material and mesh.
func (a *Allocator) LoadDeclaredMeshRenderer(id asset.Hash) (Token[MeshRenderer], error) {
	if _, err := fetch[asset.MeshRenderer](a.store, MeshRendererKind, id); err != nil {
		return Token[MeshRenderer]{}, err
	}
	deps, err := fetchDependencies(a.store, MeshRendererKind, id)
	if err != nil {
		return Token[MeshRenderer]{}, err
	}
	tok, err := a.LoadMeshRenderer(deps.Material, deps.Mesh)
	if err != nil {
		return tok, fmt.Errorf("%s %d: %w", MeshRendererKind, id, err)
	}
	return tok, nil
}

func fetch[A any](store Store, kind Kind, id asset.Hash) (A, error) {
	var payload A
	if store == nil {
		return payload, fmt.Errorf("%s %d: %w", kind, id, ErrAssetNotFound)
	}
	blob, err := store.FetchBlob(id)
	if err != nil {
		return payload, fmt.Errorf("%s %d: %w", kind, id, err)
	}
	payload, err = asset.Decode[A](blob)
	if err != nil {
		return payload, fmt.Errorf("decode %s %d: %w", kind, id, err)
	}
	return payload, nil
}

func fetchDependencies(store Store, kind Kind, id asset.Hash) (asset.DependencyRecord, error) {
	deps, err := store.FetchDependencies(id)
	if err != nil {
		return deps, fmt.Errorf("%s %d dependencies: %w", kind, id, err)
	}
	return deps, nil
}
