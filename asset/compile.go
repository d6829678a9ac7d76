// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DependencySuffix is appended to an entry name to store its dependency record.
const DependencySuffix = ".deps"

// ErrUnknownReference is returned when a manifest names an asset
// the directory does not provide.
var ErrUnknownReference = errors.New("unknown asset reference")

// EntryKind is the kind of a compiled entry
type EntryKind uint8

// Compiled entry kinds
const (
	ShaderModuleEntry EntryKind = iota
	MeshEntry
	TextureEntry
	ShaderEntry
	MaterialEntry
	MeshRendererEntry
)

func (k EntryKind) String() string {
	switch k {
	case ShaderModuleEntry:
		return "shader_module"
	case MeshEntry:
		return "mesh"
	case TextureEntry:
		return "texture"
	case ShaderEntry:
		return "shader"
	case MaterialEntry:
		return "material"
	case MeshRendererEntry:
		return "mesh_renderer"
	}
	return "unknown"
}

// Entry is one compiled asset, named by its slash separated path.
type Entry struct {
	Name         string
	Kind         EntryKind
	Blob         []byte
	Dependencies *DependencyRecord
}

// ID returns the hash the entry is stored under.
func (e Entry) ID() Hash {
	return HashPath(e.Name)
}

// DependencyBlob encodes the dependency record, nil for leaf assets.
func (e Entry) DependencyBlob() ([]byte, error) {
	if e.Dependencies == nil {
		return nil, nil
	}
	return Encode(*e.Dependencies)
}

// Compile imports every asset under root: "*.vert.spv" and "*.frag.spv"
// shader modules, Collada meshes, images as textures, and the shaders and
// materials and mesh renderers of the root manifest. Files of other types are skipped.
// Entries are returned sorted by name.
func Compile(root string) ([]Entry, error) {
	var files []string
	if err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	entries := make([]*Entry, len(files))
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return nil, err
		}
		name := filepath.ToSlash(rel)
		if name == ManifestName {
			continue
		}
		i, file := i, file
		group.Go(func() error {
			entry, err := compileFile(name, file)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			entries[i] = entry
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var compiled []Entry
	byName := make(map[string]EntryKind)
	for _, e := range entries {
		if e != nil {
			compiled = append(compiled, *e)
			byName[e.Name] = e.Kind
		}
	}

	manifest, err := os.Open(filepath.Join(root, ManifestName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer manifest.Close()
		m, err := ReadManifest(manifest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ManifestName, err)
		}
		composites, err := compileManifest(m, byName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ManifestName, err)
		}
		compiled = append(compiled, composites...)
	}

	sort.Slice(compiled, func(i, j int) bool { return compiled[i].Name < compiled[j].Name })
	return compiled, nil
}

func compileFile(name, file string) (*Entry, error) {
	var (
		kind    EntryKind
		payload interface{}
	)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ShaderSuffix:
		if _, err := StageFromName(name); err != nil {
			return nil, nil
		}
		code, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		module, err := ImportShaderModule(name, code)
		if err != nil {
			return nil, err
		}
		kind, payload = ShaderModuleEntry, module
	case ".dae":
		contents, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		mesh, err := ImportCollada(contents)
		if err != nil {
			return nil, err
		}
		kind, payload = MeshEntry, mesh
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		contents, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		texture, err := ImportTexture(bytes.NewReader(contents))
		if err != nil {
			return nil, err
		}
		kind, payload = TextureEntry, texture
	default:
		return nil, nil
	}

	blob, err := Encode(payload)
	if err != nil {
		return nil, err
	}
	return &Entry{Name: name, Kind: kind, Blob: blob}, nil
}

func compileManifest(m Manifest, files map[string]EntryKind) ([]Entry, error) {
	var entries []Entry
	shaders := make(map[string]struct{})
	materials := make(map[string]struct{})

	for _, decl := range m.Shaders {
		for _, module := range []string{decl.Vertex, decl.Fragment} {
			if !provides(files, module, ShaderModuleEntry) {
				return nil, fmt.Errorf("shader %s: module %s: %w", decl.Name, module, ErrUnknownReference)
			}
		}
		if stage, _ := StageFromName(decl.Vertex); stage != VertexStage {
			return nil, fmt.Errorf("shader %s: %s is not a vertex module", decl.Name, decl.Vertex)
		}
		if stage, _ := StageFromName(decl.Fragment); stage != FragmentStage {
			return nil, fmt.Errorf("shader %s: %s is not a fragment module", decl.Name, decl.Fragment)
		}
		shader, deps, err := decl.Shader()
		if err != nil {
			return nil, err
		}
		blob, err := Encode(shader)
		if err != nil {
			return nil, err
		}
		shaders[decl.Name] = struct{}{}
		entries = append(entries, Entry{Name: decl.Name, Kind: ShaderEntry, Blob: blob, Dependencies: &deps})
	}

	for _, decl := range m.Materials {
		if _, ok := shaders[decl.Shader]; !ok {
			return nil, fmt.Errorf("material %s: shader %s: %w", decl.Name, decl.Shader, ErrUnknownReference)
		}
		for _, p := range decl.Parameters {
			if p.Kind == "texture" && !provides(files, p.Texture, TextureEntry) {
				return nil, fmt.Errorf("material %s: texture %s: %w", decl.Name, p.Texture, ErrUnknownReference)
			}
		}
		material, deps, err := decl.Material()
		if err != nil {
			return nil, err
		}
		blob, err := Encode(material)
		if err != nil {
			return nil, err
		}
		materials[decl.Name] = struct{}{}
		entries = append(entries, Entry{Name: decl.Name, Kind: MaterialEntry, Blob: blob, Dependencies: &deps})
	}

	for _, decl := range m.Renderers {
		if _, ok := materials[decl.Material]; !ok {
			return nil, fmt.Errorf("mesh renderer %s: material %s: %w", decl.Name, decl.Material, ErrUnknownReference)
		}
		if !provides(files, decl.Mesh, MeshEntry) {
			return nil, fmt.Errorf("mesh renderer %s: mesh %s: %w", decl.Name, decl.Mesh, ErrUnknownReference)
		}
		renderer, deps := decl.MeshRenderer()
		blob, err := Encode(renderer)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: decl.Name, Kind: MeshRendererEntry, Blob: blob, Dependencies: &deps})
	}
	return entries, nil
}

func provides(files map[string]EntryKind, name string, kind EntryKind) bool {
	k, ok := files[name]
	return ok && k == kind
}
