// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
)

// Allocator owns every resource unit. It is not safe for concurrent
// use; one frame loop drives it.
type Allocator struct {
	ShaderModules *Unit[ShaderModule, asset.ShaderModule]
	Meshes        *Unit[Mesh, asset.Mesh]
	Textures      *Unit[Texture, asset.Texture]
	Shaders       *Unit[Shader, asset.Shader]
	Materials     *Unit[Material, asset.Material]
	MeshRenderers *MeshRenderers

	store Store
	log   logrus.FieldLogger
}

// NewAllocator creates an allocator resolving the Load methods
// against store, which may be nil when only inline allocation is used.
// A nil log means the standard logger.
func NewAllocator(store Store, log logrus.FieldLogger) *Allocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Allocator{
		ShaderModules: newUnit[ShaderModule, asset.ShaderModule](ShaderModuleKind,
			func(s *ShaderModule) *Header { return &s.Header }, log),
		Meshes: newUnit[Mesh, asset.Mesh](MeshKind,
			func(s *Mesh) *Header { return &s.Header }, log),
		Textures: newUnit[Texture, asset.Texture](TextureKind,
			func(s *Texture) *Header { return &s.Header }, log),
		Shaders: newUnit[Shader, asset.Shader](ShaderKind,
			func(s *Shader) *Header { return &s.Header }, log),
		Materials: newUnit[Material, asset.Material](MaterialKind,
			func(s *Material) *Header { return &s.Header }, log),
		MeshRenderers: newMeshRenderers(log),
		store:         store,
		log:           log,
	}
}

// HasAllocatedElements reports whether any slot of any kind is still
// occupied, including slots waiting for the next steps.
func (a *Allocator) HasAllocatedElements() bool {
	return a.ShaderModules.Len() > 0 ||
		a.Meshes.Len() > 0 ||
		a.Textures.Len() > 0 ||
		a.Shaders.Len() > 0 ||
		a.Materials.Len() > 0 ||
		a.MeshRenderers.Len() > 0
}

// Stats summarizes every unit, in allocation order.
func (a *Allocator) Stats() Stats {
	return Stats{
		a.ShaderModules.Stats(),
		a.Meshes.Stats(),
		a.Textures.Stats(),
		a.Shaders.Stats(),
		a.Materials.Stats(),
		a.MeshRenderers.Stats(),
	}
}
