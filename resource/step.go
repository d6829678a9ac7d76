// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
)

// DeallocationStep destroys every resource released since the last
// step, dependents before their dependencies.
func (a *Allocator) DeallocationStep(dev Device) {
	var n int
	n += a.MeshRenderers.deallocate(func(r *MeshRenderer) { dev.DestroyRenderable(r.Handle) })
	n += a.Materials.deallocate(func(m *Material) { dev.DestroyMaterial(m.Handle) })
	n += a.Shaders.deallocate(func(s *Shader) { dev.DestroyShader(s.Handle) })
	n += a.ShaderModules.deallocate(func(s *ShaderModule) { dev.DestroyShaderModule(s.Handle) })
	n += a.Meshes.deallocate(func(m *Mesh) { dev.DestroyMesh(m.Handle) })
	n += a.Textures.deallocate(func(t *Texture) { dev.DestroyTexture(t.Handle) })
	if n > 0 {
		a.log.WithField("destroyed", n).Info("deallocation step")
	}
}

// AllocationStep creates every resource referenced since the last
// step, dependencies before their dependents. It must run after
// DeallocationStep within a frame.
func (a *Allocator) AllocationStep(dev Device) {
	var n int
	n += a.ShaderModules.allocate(func(_ *ShaderModule, p asset.ShaderModule) Handle {
		return dev.CreateShaderModule(p)
	})
	n += a.Meshes.allocate(func(_ *Mesh, p asset.Mesh) Handle {
		return dev.CreateMesh(p)
	})
	n += a.Textures.allocate(func(_ *Texture, p asset.Texture) Handle {
		return dev.CreateTexture(p)
	})
	n += a.Shaders.allocate(func(s *Shader, p asset.Shader) Handle {
		return dev.CreateShader(p, a.ShaderModules.Handle(s.Vertex), a.ShaderModules.Handle(s.Fragment))
	})
	n += a.Materials.allocate(func(m *Material, p asset.Material) Handle {
		textures := make([]Handle, len(m.Textures))
		for i, t := range m.Textures {
			textures[i] = a.Textures.Handle(t)
		}
		return dev.CreateMaterial(p, a.Shaders.Handle(m.Shader), textures)
	})
	n += a.MeshRenderers.allocate(func(r *MeshRenderer) Handle {
		return dev.CreateRenderable(a.Meshes.Handle(r.Mesh), a.Materials.Handle(r.Material))
	})
	if n > 0 {
		a.log.WithField("created", n).Info("allocation step")
	}
}

// Step runs both steps of a frame in order.
func (a *Allocator) Step(dev Device) {
	a.DeallocationStep(dev)
	a.AllocationStep(dev)
}

// Shutdown runs a last frame and reports every slot still occupied
// with ErrLeakedResources. All tokens must have been released before.
func (a *Allocator) Shutdown(dev Device) error {
	a.Step(dev)
	if !a.HasAllocatedElements() {
		return nil
	}
	stats := a.Stats()
	for _, s := range stats {
		if s.Slots > 0 {
			a.log.WithFields(logrus.Fields{"kind": s.Kind, "live": s.Live}).Warn("leaked resources")
		}
	}
	return fmt.Errorf("%w: %s", ErrLeakedResources, stats)
}
