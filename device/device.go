package device

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/resource"
)

// Op is a recorded device operation
type Op uint8

// Device operations
const (
	Create Op = iota
	Destroy
)

func (o Op) String() string {
	if o == Create {
		return "create"
	}
	return "destroy"
}

// Call is one recorded device call
type Call struct {
	Kind   resource.Kind
	Op     Op
	Handle resource.Handle
	// Dependencies holds the handles passed to a create call
	Dependencies []resource.Handle
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s %d", c.Op, c.Kind, c.Handle)
}

// Device describes a rendering device the resource cache can drive
type Device interface {
	resource.Device
	Destroy()
}

// Recorder is a headless Device. It mints handles, records every call
// and keeps track of the handles still alive.
type Recorder struct {
	mu    sync.Mutex
	next  resource.Handle
	calls []Call
	live  map[resource.Handle]resource.Kind
	log   logrus.FieldLogger
}

// NewRecorder creates an empty recorder
func NewRecorder(log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		live: make(map[resource.Handle]resource.Kind),
		log:  log.WithField("device", "recorder"),
	}
}

func (r *Recorder) create(kind resource.Kind, deps ...resource.Handle) resource.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range deps {
		if _, ok := r.live[d]; !ok {
			r.log.WithFields(logrus.Fields{"kind": kind, "dependency": d}).Error("create with dead dependency")
		}
	}
	r.next++
	r.live[r.next] = kind
	r.calls = append(r.calls, Call{Kind: kind, Op: Create, Handle: r.next, Dependencies: deps})
	return r.next
}

func (r *Recorder) destroy(kind resource.Kind, h resource.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if k, ok := r.live[h]; !ok || k != kind {
		r.log.WithFields(logrus.Fields{"kind": kind, "handle": h}).Error("destroy of unknown handle")
	}
	delete(r.live, h)
	r.calls = append(r.calls, Call{Kind: kind, Op: Destroy, Handle: h})
}

// CreateShaderModule implements resource.Device
func (r *Recorder) CreateShaderModule(module asset.ShaderModule) resource.Handle {
	return r.create(resource.ShaderModuleKind)
}

// DestroyShaderModule implements resource.Device
func (r *Recorder) DestroyShaderModule(h resource.Handle) {
	r.destroy(resource.ShaderModuleKind, h)
}

// CreateMesh implements resource.Device
func (r *Recorder) CreateMesh(mesh asset.Mesh) resource.Handle {
	return r.create(resource.MeshKind)
}

// DestroyMesh implements resource.Device
func (r *Recorder) DestroyMesh(h resource.Handle) {
	r.destroy(resource.MeshKind, h)
}

// CreateTexture implements resource.Device
func (r *Recorder) CreateTexture(texture asset.Texture) resource.Handle {
	return r.create(resource.TextureKind)
}

// DestroyTexture implements resource.Device
func (r *Recorder) DestroyTexture(h resource.Handle) {
	r.destroy(resource.TextureKind, h)
}

// CreateShader implements resource.Device
func (r *Recorder) CreateShader(shader asset.Shader, vertex, fragment resource.Handle) resource.Handle {
	return r.create(resource.ShaderKind, vertex, fragment)
}

// DestroyShader implements resource.Device
func (r *Recorder) DestroyShader(h resource.Handle) {
	r.destroy(resource.ShaderKind, h)
}

// CreateMaterial implements resource.Device
func (r *Recorder) CreateMaterial(material asset.Material, shader resource.Handle, textures []resource.Handle) resource.Handle {
	return r.create(resource.MaterialKind, append([]resource.Handle{shader}, textures...)...)
}

// DestroyMaterial implements resource.Device
func (r *Recorder) DestroyMaterial(h resource.Handle) {
	r.destroy(resource.MaterialKind, h)
}

// CreateRenderable implements resource.Device
func (r *Recorder) CreateRenderable(mesh, material resource.Handle) resource.Handle {
	return r.create(resource.MeshRendererKind, mesh, material)
}

// DestroyRenderable implements resource.Device
func (r *Recorder) DestroyRenderable(h resource.Handle) {
	r.destroy(resource.MeshRendererKind, h)
}

// Calls returns a copy of the recorded calls
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns the number of recorded calls of a kind and operation
func (r *Recorder) Count(kind resource.Kind, op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, c := range r.calls {
		if c.Kind == kind && c.Op == op {
			n++
		}
	}
	return n
}

// Live returns the number of handles created and not yet destroyed
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Reset forgets the recorded calls, keeping live handles
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Destroy reports every handle still alive
func (r *Recorder) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, kind := range r.live {
		r.log.WithFields(logrus.Fields{"kind": kind, "handle": h}).Warn("leaked handle")
	}
}
