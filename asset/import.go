// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // registers jpeg decoding for ImportTexture
	_ "image/png"  // registers png decoding for ImportTexture
	"io"
	"path/filepath"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"  // registers bmp decoding for ImportTexture
	_ "golang.org/x/image/tiff" // registers tiff decoding for ImportTexture

	"github.com/devblok/korures/util/collada"
)

// ShaderSuffix marks compiled shader module files.
const ShaderSuffix = ".spv"

// import errors
var (
	ErrNoGeometry     = errors.New("collada document has no geometry")
	ErrNoPositions    = errors.New("collada mesh has no position source")
	ErrNotShader      = errors.New("not a compiled shader module name")
	ErrIndexOutOfData = errors.New("collada index points outside of its source")
)

// StageFromName derives the shader stage from a compiled module file name.
// The name must be of the form "<name>.<vert|frag>.spv": the first part is
// the name of the shader, second is the stage, and the suffix ensures that
// the module is compiled.
func StageFromName(name string) (Stage, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ShaderSuffix) {
		return UnknownStage, ErrNotShader
	}
	nodes := strings.Split(strings.TrimSuffix(base, ShaderSuffix), ".")
	if len(nodes) != 2 {
		return UnknownStage, ErrNotShader
	}
	switch nodes[1] {
	case "vert":
		return VertexStage, nil
	case "frag":
		return FragmentStage, nil
	}
	return UnknownStage, ErrNotShader
}

// ImportShaderModule wraps a compiled module found under name.
func ImportShaderModule(name string, code []byte) (ShaderModule, error) {
	stage, err := StageFromName(name)
	if err != nil {
		return ShaderModule{}, fmt.Errorf("%s: %w", name, err)
	}
	return ShaderModule{Stage: stage, Code: code}, nil
}

// ImportCollada reads the first geometry of a Collada document into a Mesh.
// Triangle corners sharing both position and texture coordinate are merged
// into a single vertex.
func ImportCollada(contents []byte) (Mesh, error) {
	var document collada.Collada
	if err := xml.Unmarshal(contents, &document); err != nil {
		return Mesh{}, err
	}
	if len(document.Geometries) == 0 {
		return Mesh{}, ErrNoGeometry
	}

	mesh := &document.Geometries[0].Mesh
	positions, err := positionSource(mesh)
	if err != nil {
		return Mesh{}, err
	}
	posStride := positions.Stride(3)

	type corner struct{ pos, uv int }
	var (
		result  Mesh
		written = map[corner]uint32{}
	)
	for _, triangles := range mesh.Triangles {
		stride := triangles.Stride()
		if stride == 0 {
			continue
		}
		vertexInput, ok := triangles.Input(collada.SemanticVertex)
		if !ok {
			continue
		}
		var (
			uvs      collada.Source
			uvStride int
			uvOffset = -1
		)
		if in, ok := triangles.Input(collada.SemanticTexcoord); ok {
			if src, ok := mesh.Source(in.Source); ok {
				uvs, uvStride, uvOffset = src, src.Stride(2), int(in.Offset)
			}
		}

		for idx := 0; idx+stride <= len(triangles.Index); idx += stride {
			indices := triangles.Index[idx : idx+stride]
			key := corner{pos: indices[vertexInput.Offset], uv: -1}
			if uvOffset >= 0 {
				key.uv = indices[uvOffset]
			}
			if at, ok := written[key]; ok {
				result.Indices = append(result.Indices, at)
				continue
			}

			var vert Vertex
			p := key.pos * posStride
			if p+3 > len(positions.Floats.Data) {
				return Mesh{}, ErrIndexOutOfData
			}
			vert.Pos = glm.Vec3{positions.Floats.Data[p], positions.Floats.Data[p+1], positions.Floats.Data[p+2]}
			if key.uv >= 0 {
				u := key.uv * uvStride
				if u+2 > len(uvs.Floats.Data) {
					return Mesh{}, ErrIndexOutOfData
				}
				vert.UV = glm.Vec2{uvs.Floats.Data[u], uvs.Floats.Data[u+1]}
			}

			at := uint32(len(result.Vertices))
			written[key] = at
			result.Vertices = append(result.Vertices, vert)
			result.Indices = append(result.Indices, at)
		}
	}
	return result, nil
}

func positionSource(mesh *collada.Mesh) (collada.Source, error) {
	if in, ok := mesh.Vertices.Input(collada.SemanticPosition); ok {
		if src, ok := mesh.Source(in.Source); ok {
			return src, nil
		}
	}
	// Older exporters only follow the "<mesh>-positions" naming.
	for _, s := range mesh.Sources {
		if strings.HasSuffix(s.ID, "-positions") {
			return s, nil
		}
	}
	return collada.Source{}, ErrNoPositions
}

// ImportTexture decodes an image (png, jpeg, bmp or tiff) into an RGBA texture.
func ImportTexture(r io.Reader) (Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Texture{}, err
	}
	bounds := img.Bounds()
	return Texture{
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Depth:    1,
		Channels: 4,
		Pixels:   Pixels(img),
	}, nil
}

// Pixels draws the image onto a tightly packed RGBA canvas and
// returns its pixel rows.
func Pixels(img image.Image) []uint8 {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return canvas.Pix
}
