// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "github.com/devblok/korures/asset"

// Device is the graphics backend. It is only called from within
// the allocation and deallocation steps; dependency handles passed
// to a create call are always allocated.
type Device interface {
	CreateShaderModule(module asset.ShaderModule) Handle
	DestroyShaderModule(h Handle)

	CreateMesh(mesh asset.Mesh) Handle
	DestroyMesh(h Handle)

	CreateTexture(texture asset.Texture) Handle
	DestroyTexture(h Handle)

	CreateShader(shader asset.Shader, vertex, fragment Handle) Handle
	DestroyShader(h Handle)

	CreateMaterial(material asset.Material, shader Handle, textures []Handle) Handle
	DestroyMaterial(h Handle)

	CreateRenderable(mesh, material Handle) Handle
	DestroyRenderable(h Handle)
}
