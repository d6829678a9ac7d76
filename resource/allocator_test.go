// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/device"
	"github.com/devblok/korures/resource"
)

const (
	meshID     asset.Hash = 1486
	materialID asset.Hash = 0
	shaderID   asset.Hash = 1482658
	vertexID   asset.Hash = 12
	fragmentID asset.Hash = 14
	textureID  asset.Hash = 100
)

func newAllocator(c *qt.C, store resource.Store) (*resource.Allocator, *device.Recorder, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	dev := device.NewRecorder(log)
	c.Cleanup(dev.Destroy)
	return resource.NewAllocator(store, log), dev, hook
}

func shaderInput() resource.ShaderInput {
	return resource.ShaderInput{
		ID:       shaderID,
		Asset:    asset.Shader{Parameters: []asset.LayoutParameter{asset.UniformBufferVertex, asset.TextureFragment}},
		Vertex:   resource.ShaderModuleInput{ID: vertexID, Asset: asset.ShaderModule{Stage: asset.VertexStage, Code: []byte{1, 2, 3, 4}}},
		Fragment: resource.ShaderModuleInput{ID: fragmentID, Asset: asset.ShaderModule{Stage: asset.FragmentStage, Code: []byte{5, 6, 7, 8}}},
	}
}

func materialInput(id asset.Hash) resource.MaterialInput {
	return resource.MaterialInput{
		ID:     id,
		Asset:  asset.Material{},
		Shader: shaderInput(),
	}
}

func texturedMaterialInput(id asset.Hash) resource.MaterialInput {
	in := materialInput(id)
	in.Asset.Parameters = []asset.Parameter{
		{Kind: asset.UniformHost, Data: []byte{1}},
		{Kind: asset.TextureGPU, Texture: textureID},
		{Kind: asset.UniformGPU, Data: []byte{2, 3}},
	}
	in.Textures = []resource.TextureInput{{ID: textureID, Asset: asset.Texture{Width: 1, Height: 1, Depth: 1, Channels: 4, Pixels: []byte{0, 0, 0, 255}}}}
	return in
}

func cube() asset.Mesh {
	return asset.Mesh{
		Vertices: make([]asset.Vertex, 8),
		Indices:  make([]uint32, 36),
	}
}

func TestExampleScenario(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	mesh := a.AllocateMesh(meshID, cube())
	material, err := a.AllocateMaterial(materialInput(materialID))
	c.Assert(err, qt.IsNil)

	a.DeallocationStep(dev)
	a.AllocationStep(dev)

	m, err := a.Meshes.Get(mesh)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Allocated, qt.IsTrue)
	mat, err := a.Materials.Get(material)
	c.Assert(err, qt.IsNil)
	c.Assert(mat.Allocated, qt.IsTrue)

	shader, ok := a.Shaders.Token(shaderID)
	c.Assert(ok, qt.IsTrue)
	c.Assert(mat.Shader, qt.Equals, shader)
	s, err := a.Shaders.Get(shader)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Allocated, qt.IsTrue)

	for _, id := range []asset.Hash{vertexID, fragmentID} {
		tok, ok := a.ShaderModules.Token(id)
		c.Assert(ok, qt.IsTrue)
		module, err := a.ShaderModules.Get(tok)
		c.Assert(err, qt.IsNil)
		c.Assert(module.Allocated, qt.IsTrue)
		c.Assert(module.ID, qt.Equals, id)
	}

	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 1)
	c.Assert(a.Materials.Counter(materialID), qt.Equals, 1)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 1)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 1)
	c.Assert(a.ShaderModules.Counter(fragmentID), qt.Equals, 1)

	vertex, fragment := s.Vertex, s.Fragment
	a.ReleaseMaterial(material)
	a.DeallocationStep(dev)

	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 0)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 0)
	c.Assert(a.ShaderModules.Counter(fragmentID), qt.Equals, 0)
	c.Assert(a.Materials.IsFree(material), qt.IsTrue)
	c.Assert(a.Shaders.IsFree(shader), qt.IsTrue)
	c.Assert(a.ShaderModules.IsFree(vertex), qt.IsTrue)
	c.Assert(a.ShaderModules.IsFree(fragment), qt.IsTrue)

	m, err = a.Meshes.Get(mesh)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Allocated, qt.IsTrue)
	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 1)

	a.ReleaseMesh(mesh)
	c.Assert(a.Shutdown(dev), qt.IsNil)
	c.Assert(dev.Live(), qt.Equals, 0)
}

func TestSingleMaterialization(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	first := a.AllocateMesh(meshID, cube())
	for i := 0; i < 3; i++ {
		c.Assert(a.AllocateMesh(meshID, cube()), qt.Equals, first)
	}
	c.Assert(a.Stats()[resource.MeshKind].PendingAllocation, qt.Equals, 1)

	a.Step(dev)
	c.Assert(dev.Count(resource.MeshKind, device.Create), qt.Equals, 1)

	c.Assert(a.AllocateMesh(meshID, cube()), qt.Equals, first)
	a.Step(dev)
	c.Assert(dev.Count(resource.MeshKind, device.Create), qt.Equals, 1)
	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 5)
}

func TestCounterCorrectness(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	const n, m = 5, 3
	var tok resource.Token[resource.Texture]
	for i := 0; i < n; i++ {
		tok = a.AllocateTexture(textureID, asset.Texture{})
	}
	a.Step(dev)
	for i := 0; i < m; i++ {
		a.ReleaseTexture(tok)
	}
	c.Assert(a.Textures.Counter(textureID), qt.Equals, n-m)

	for i := 0; i < n-m; i++ {
		a.ReleaseTexture(tok)
	}
	c.Assert(a.Textures.Counter(textureID), qt.Equals, 0)
	// allocated slots wait for the deallocation step
	c.Assert(a.Textures.IsFree(tok), qt.IsFalse)
	c.Assert(dev.Count(resource.TextureKind, device.Destroy), qt.Equals, 0)

	a.DeallocationStep(dev)
	c.Assert(a.Textures.IsFree(tok), qt.IsTrue)
	c.Assert(dev.Count(resource.TextureKind, device.Destroy), qt.Equals, 1)
}

func TestSameFrameCollapse(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	mesh := a.AllocateMesh(meshID, cube())
	a.ReleaseMesh(mesh)
	c.Assert(a.Meshes.IsFree(mesh), qt.IsTrue)

	material, err := a.AllocateMaterial(texturedMaterialInput(materialID))
	c.Assert(err, qt.IsNil)
	a.ReleaseMaterial(material)
	c.Assert(a.Materials.IsFree(material), qt.IsTrue)
	c.Assert(a.HasAllocatedElements(), qt.IsFalse)

	a.Step(dev)
	a.Step(dev)
	c.Assert(dev.Calls(), qt.HasLen, 0)
}

func TestDependencySharing(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	first, err := a.AllocateMaterial(materialInput(1))
	c.Assert(err, qt.IsNil)
	second, err := a.AllocateMaterial(materialInput(2))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 2)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 1)

	a.Step(dev)
	c.Assert(dev.Count(resource.ShaderKind, device.Create), qt.Equals, 1)
	c.Assert(dev.Count(resource.ShaderModuleKind, device.Create), qt.Equals, 2)
	c.Assert(dev.Count(resource.MaterialKind, device.Create), qt.Equals, 2)

	a.ReleaseMaterial(first)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 1)
	a.Step(dev)
	c.Assert(dev.Count(resource.MaterialKind, device.Destroy), qt.Equals, 1)
	c.Assert(dev.Count(resource.ShaderKind, device.Destroy), qt.Equals, 0)

	a.ReleaseMaterial(second)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 0)
	a.Step(dev)
	c.Assert(dev.Count(resource.ShaderKind, device.Destroy), qt.Equals, 1)
	c.Assert(dev.Count(resource.ShaderModuleKind, device.Destroy), qt.Equals, 2)
	c.Assert(a.HasAllocatedElements(), qt.IsFalse)
}

func TestPresentCompositeIsPureIncrement(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	first := a.AllocateShader(shaderInput())
	second := a.AllocateShader(shaderInput())
	c.Assert(second, qt.Equals, first)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 2)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 1)
	c.Assert(a.ShaderModules.Counter(fragmentID), qt.Equals, 1)

	a.Step(dev)
	a.ReleaseShader(first)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 1)
	a.ReleaseShader(second)
	c.Assert(a.ShaderModules.Counter(vertexID), qt.Equals, 0)
	c.Assert(a.Shutdown(dev), qt.IsNil)
}

func TestMaterialParameters(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	tok, err := a.AllocateMaterial(texturedMaterialInput(materialID))
	c.Assert(err, qt.IsNil)
	texture, ok := a.Textures.Token(textureID)
	c.Assert(ok, qt.IsTrue)

	material, err := a.Materials.Get(tok)
	c.Assert(err, qt.IsNil)
	c.Assert(material.Textures, qt.HasLen, 1)
	c.Assert(material.Textures[0], qt.Equals, texture)
	c.Assert(material.Parameters, qt.HasLen, 3)
	c.Assert(material.Parameters[0], qt.DeepEquals, resource.Parameter(resource.UniformHostParameter{Data: []byte{1}}))
	c.Assert(material.Parameters[1], qt.Equals, resource.Parameter(resource.TextureParameter{Texture: texture}))
	c.Assert(material.Parameters[2], qt.DeepEquals, resource.Parameter(resource.UniformGPUParameter{Data: []byte{2, 3}}))
	c.Assert(material.Parameters[1].Kind(), qt.Equals, asset.TextureGPU)

	a.Step(dev)
	calls := dev.Calls()
	last := calls[len(calls)-1]
	c.Assert(last.Kind, qt.Equals, resource.MaterialKind)
	c.Assert(last.Dependencies, qt.DeepEquals, []resource.Handle{
		a.Shaders.Handle(material.Shader),
		a.Textures.Handle(texture),
	})

	a.ReleaseMaterial(tok)
	c.Assert(a.Shutdown(dev), qt.IsNil)
}

func TestMaterialMissingTexture(t *testing.T) {
	c := qt.New(t)
	a, _, _ := newAllocator(c, nil)

	in := texturedMaterialInput(materialID)
	in.Textures = nil
	_, err := a.AllocateMaterial(in)
	c.Assert(err, qt.ErrorIs, resource.ErrMissingDependency)
	c.Assert(a.HasAllocatedElements(), qt.IsFalse)
}

func TestStepOrder(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	renderer, err := a.AllocateMeshRenderer(resource.MeshRendererInput{
		Material: texturedMaterialInput(materialID),
		Mesh:     resource.MeshInput{ID: meshID, Asset: cube()},
	})
	c.Assert(err, qt.IsNil)

	a.Step(dev)
	c.Assert(kinds(dev.Calls()), qt.DeepEquals, []resource.Kind{
		resource.ShaderModuleKind,
		resource.ShaderModuleKind,
		resource.MeshKind,
		resource.TextureKind,
		resource.ShaderKind,
		resource.MaterialKind,
		resource.MeshRendererKind,
	})

	r, err := a.MeshRenderers.Get(renderer)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Allocated, qt.IsTrue)

	dev.Reset()
	a.ReleaseMeshRenderer(renderer)
	a.Step(dev)
	c.Assert(kinds(dev.Calls()), qt.DeepEquals, []resource.Kind{
		resource.MeshRendererKind,
		resource.MaterialKind,
		resource.ShaderKind,
		resource.ShaderModuleKind,
		resource.ShaderModuleKind,
		resource.MeshKind,
		resource.TextureKind,
	})
	c.Assert(a.HasAllocatedElements(), qt.IsFalse)
	c.Assert(dev.Live(), qt.Equals, 0)
}

func TestMeshRenderersAreNotShared(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	in := resource.MeshRendererInput{
		Material: materialInput(materialID),
		Mesh:     resource.MeshInput{ID: meshID, Asset: cube()},
	}
	first, err := a.AllocateMeshRenderer(in)
	c.Assert(err, qt.IsNil)
	second, err := a.AllocateMeshRenderer(in)
	c.Assert(err, qt.IsNil)
	c.Assert(first, qt.Not(qt.Equals), second)
	c.Assert(a.MeshRenderers.Len(), qt.Equals, 2)
	c.Assert(a.Materials.Counter(materialID), qt.Equals, 2)
	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 2)

	a.Step(dev)
	c.Assert(dev.Count(resource.MeshRendererKind, device.Create), qt.Equals, 2)
	c.Assert(dev.Count(resource.MaterialKind, device.Create), qt.Equals, 1)

	a.ReleaseMeshRenderer(first)
	c.Assert(func() { a.ReleaseMeshRenderer(first) }, qt.PanicMatches, ".*invalid token")
	a.ReleaseMeshRenderer(second)
	c.Assert(a.Shutdown(dev), qt.IsNil)
}

func TestInvalidToken(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	collapsed := a.AllocateMesh(meshID, cube())
	a.ReleaseMesh(collapsed)
	c.Assert(func() { a.ReleaseMesh(collapsed) }, qt.PanicMatches, "mesh: invalid token")
	_, err := a.Meshes.Get(collapsed)
	c.Assert(err, qt.ErrorIs, resource.ErrInvalidToken)

	pending := a.AllocateMesh(meshID, cube())
	a.Step(dev)
	a.ReleaseMesh(pending)
	// still resolvable until the next deallocation step, but no longer referenced
	c.Assert(a.Meshes.IsFree(pending), qt.IsFalse)
	c.Assert(func() { a.ReleaseMesh(pending) }, qt.PanicMatches, "invalid token")

	var zero resource.Token[resource.Shader]
	c.Assert(func() { a.ReleaseShader(zero) }, qt.PanicMatches, ".*invalid token")
	a.Step(dev)
}

func TestShutdownReportsLeaks(t *testing.T) {
	c := qt.New(t)
	a, dev, hook := newAllocator(c, nil)

	tok := a.AllocateMesh(meshID, cube())
	err := a.Shutdown(dev)
	c.Assert(err, qt.ErrorIs, resource.ErrLeakedResources)
	c.Assert(hook.LastEntry().Level, qt.Equals, logrus.WarnLevel)
	c.Assert(hook.LastEntry().Data["kind"], qt.Equals, resource.MeshKind)

	a.ReleaseMesh(tok)
	c.Assert(a.Shutdown(dev), qt.IsNil)
}

func TestStats(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	mesh := a.AllocateMesh(meshID, cube())
	stats := a.Stats()
	c.Assert(stats, qt.HasLen, 6)
	c.Assert(stats[resource.MeshKind], qt.DeepEquals, resource.KindStats{
		Kind:              resource.MeshKind,
		Live:              1,
		Slots:             1,
		PendingAllocation: 1,
		PendingBytes:      int64(cube().Size()),
	})
	c.Assert(stats[resource.MeshKind].String(), qt.Equals, "mesh: live=1 allocated=0 pending=1/0 (304B)")

	a.Step(dev)
	a.ReleaseMesh(mesh)
	stats = a.Stats()
	c.Assert(stats[resource.MeshKind].Live, qt.Equals, 0)
	c.Assert(stats[resource.MeshKind].Allocated, qt.Equals, 1)
	c.Assert(stats[resource.MeshKind].PendingFree, qt.Equals, 1)
	a.Step(dev)
}

func kinds(calls []device.Call) []resource.Kind {
	out := make([]resource.Kind, len(calls))
	for i, call := range calls {
		out[i] = call.Kind
	}
	return out
}

func TestMeshRendererSameFrameCollapse(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	renderer, err := a.AllocateMeshRenderer(resource.MeshRendererInput{
		Material: texturedMaterialInput(materialID),
		Mesh:     resource.MeshInput{ID: meshID, Asset: cube()},
	})
	c.Assert(err, qt.IsNil)
	a.ReleaseMeshRenderer(renderer)

	c.Assert(a.MeshRenderers.IsFree(renderer), qt.IsTrue)
	c.Assert(a.MeshRenderers.Stats().PendingAllocation, qt.Equals, 0)
	c.Assert(a.HasAllocatedElements(), qt.IsFalse)
	c.Assert(func() { a.ReleaseMeshRenderer(renderer) }, qt.PanicMatches, ".*invalid token")

	a.Step(dev)
	c.Assert(dev.Calls(), qt.HasLen, 0)
}

func TestReferenceWhilePendingFree(t *testing.T) {
	c := qt.New(t)
	a, dev, hook := newAllocator(c, nil)

	old := a.AllocateMesh(meshID, cube())
	a.Step(dev)
	oldHandle := a.Meshes.Handle(old)

	a.ReleaseMesh(old)
	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 0)
	_, ok := a.Meshes.Token(meshID)
	c.Assert(ok, qt.IsFalse)
	m, err := a.Meshes.Get(old)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Allocated, qt.IsTrue)

	again := a.AllocateMesh(meshID, cube())
	c.Assert(again, qt.Not(qt.Equals), old)
	tok, ok := a.Meshes.Token(meshID)
	c.Assert(ok, qt.IsTrue)
	c.Assert(tok, qt.Equals, again)
	c.Assert(a.Meshes.Counter(meshID), qt.Equals, 1)

	dev.Reset()
	a.Step(dev)
	calls := dev.Calls()
	c.Assert(calls, qt.HasLen, 2)
	c.Assert(calls[0].Op, qt.Equals, device.Destroy)
	c.Assert(calls[0].Handle, qt.Equals, oldHandle)
	c.Assert(calls[1].Op, qt.Equals, device.Create)
	c.Assert(a.Meshes.IsFree(old), qt.IsTrue)

	m, err = a.Meshes.Get(again)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Allocated, qt.IsTrue)
	c.Assert(m.Handle, qt.Equals, calls[1].Handle)
	c.Assert(dev.Live(), qt.Equals, 1)

	a.ReleaseMesh(again)
	c.Assert(a.Shutdown(dev), qt.IsNil)
	for _, e := range hook.AllEntries() {
		c.Assert(e.Level, qt.Not(qt.Equals), logrus.ErrorLevel, qt.Commentf("%s", e.Message))
	}
}

func TestCompositeReferenceWhilePendingFree(t *testing.T) {
	c := qt.New(t)
	a, dev, hook := newAllocator(c, nil)

	material, err := a.AllocateMaterial(texturedMaterialInput(materialID))
	c.Assert(err, qt.IsNil)
	a.Step(dev)
	a.ReleaseMaterial(material)

	again, err := a.AllocateMaterial(texturedMaterialInput(materialID))
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.Not(qt.Equals), material)
	c.Assert(a.Shaders.Counter(shaderID), qt.Equals, 1)
	c.Assert(a.Textures.Counter(textureID), qt.Equals, 1)

	dev.Reset()
	a.Step(dev)
	for _, kind := range []resource.Kind{resource.ShaderModuleKind, resource.TextureKind, resource.ShaderKind, resource.MaterialKind} {
		want := 1
		if kind == resource.ShaderModuleKind {
			want = 2
		}
		c.Assert(dev.Count(kind, device.Destroy), qt.Equals, want, qt.Commentf("%s", kind))
		c.Assert(dev.Count(kind, device.Create), qt.Equals, want, qt.Commentf("%s", kind))
	}
	c.Assert(dev.Live(), qt.Equals, 5)

	a.ReleaseMaterial(again)
	c.Assert(a.Shutdown(dev), qt.IsNil)
	c.Assert(dev.Live(), qt.Equals, 0)
	for _, e := range hook.AllEntries() {
		c.Assert(e.Level, qt.Not(qt.Equals), logrus.ErrorLevel, qt.Commentf("%s", e.Message))
	}
}

func TestQueuesDrainNewestFirst(t *testing.T) {
	c := qt.New(t)
	a, dev, _ := newAllocator(c, nil)

	first := a.AllocateMesh(1, cube())
	second := a.AllocateMesh(2, cube())
	a.Step(dev)
	c.Assert(a.Meshes.Handle(second), qt.Equals, resource.Handle(1))
	c.Assert(a.Meshes.Handle(first), qt.Equals, resource.Handle(2))

	dev.Reset()
	a.ReleaseMesh(first)
	a.ReleaseMesh(second)
	a.Step(dev)
	calls := dev.Calls()
	c.Assert(calls, qt.HasLen, 2)
	c.Assert(calls[0].Handle, qt.Equals, resource.Handle(1))
	c.Assert(calls[1].Handle, qt.Equals, resource.Handle(2))
}
