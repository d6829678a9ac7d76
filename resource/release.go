// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// ReleaseShaderModule drops one reference to a shader module.
// Releasing a token that no longer holds a reference panics.
func (a *Allocator) ReleaseShaderModule(tok Token[ShaderModule]) {
	a.ShaderModules.decrementOrRelease(tok)
}

// ReleaseMesh drops one reference to a mesh.
func (a *Allocator) ReleaseMesh(tok Token[Mesh]) {
	a.Meshes.decrementOrRelease(tok)
}

// ReleaseTexture drops one reference to a texture.
func (a *Allocator) ReleaseTexture(tok Token[Texture]) {
	a.Textures.decrementOrRelease(tok)
}

// ReleaseShader drops one reference to a shader. The last reference
// also releases both stage modules.
func (a *Allocator) ReleaseShader(tok Token[Shader]) {
	shader, last := a.Shaders.decrementOrRelease(tok)
	if !last {
		return
	}
	a.ReleaseShaderModule(shader.Vertex)
	a.ReleaseShaderModule(shader.Fragment)
}

// ReleaseMaterial drops one reference to a material. The last
// reference also releases its shader and textures.
func (a *Allocator) ReleaseMaterial(tok Token[Material]) {
	material, last := a.Materials.decrementOrRelease(tok)
	if !last {
		return
	}
	a.ReleaseShader(material.Shader)
	for _, t := range material.Textures {
		a.ReleaseTexture(t)
	}
}

// ReleaseMeshRenderer destroys a mesh renderer and releases its
// material and mesh.
func (a *Allocator) ReleaseMeshRenderer(tok Token[MeshRenderer]) {
	r := a.MeshRenderers.release(tok)
	a.ReleaseMaterial(r.Material)
	a.ReleaseMesh(r.Mesh)
}
