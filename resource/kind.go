// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// Kind names a resource category. Each kind has its own pool
// and event queues.
type Kind uint8

// Resource kinds, in allocation order
const (
	ShaderModuleKind Kind = iota
	MeshKind
	TextureKind
	ShaderKind
	MaterialKind
	MeshRendererKind
)

func (k Kind) String() string {
	switch k {
	case ShaderModuleKind:
		return "shader_module"
	case MeshKind:
		return "mesh"
	case TextureKind:
		return "texture"
	case ShaderKind:
		return "shader"
	case MaterialKind:
		return "material"
	case MeshRendererKind:
		return "mesh_renderer"
	}
	return "unknown"
}
