package core

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/device"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/store"
)

// Engine drives the resource cache once per frame. It owns the
// allocator, the asset stores and the device.
type Engine struct {
	Allocator *resource.Allocator

	device  device.Device
	time    Time
	log     logrus.FieldLogger
	closers []io.Closer

	renderers map[resource.Token[resource.MeshRenderer]]struct{}
	frames    int
}

// NewEngine opens the stores named by the configuration, followed by
// fallback stores such as the builtin box, and sets up the allocator.
func NewEngine(cfg Configuration, dev device.Device, log logrus.FieldLogger, fallback ...resource.Store) (*Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		device:    dev,
		log:       log,
		renderers: make(map[resource.Token[resource.MeshRenderer]]struct{}),
	}

	var stores []resource.Store
	if cfg.Assets.Archive != "" {
		ar, err := store.OpenArchive(cfg.Assets.Archive)
		if err != nil {
			e.close()
			return nil, err
		}
		log.WithFields(logrus.Fields{"archive": cfg.Assets.Archive, "assets": ar.Len()}).Info("archive opened")
		stores = append(stores, ar)
		e.closers = append(e.closers, ar)
	}
	if cfg.Assets.Directory != "" {
		dir, err := store.NewDir(cfg.Assets.Directory, log)
		if err != nil {
			e.close()
			return nil, err
		}
		if cfg.Assets.Watch {
			if err := dir.Watch(); err != nil {
				e.close()
				return nil, err
			}
		}
		log.WithFields(logrus.Fields{"directory": cfg.Assets.Directory, "assets": dir.Len()}).Info("asset directory opened")
		stores = append(stores, dir)
		e.closers = append(e.closers, dir)
	}
	stores = append(stores, fallback...)

	e.Allocator = resource.NewAllocator(store.NewChain(log, stores...), log)
	e.time = NewTime(cfg.Time)
	return e, nil
}

// AddMeshRenderer creates a mesh renderer owned by the engine
func (e *Engine) AddMeshRenderer(material, mesh asset.Hash) (resource.Token[resource.MeshRenderer], error) {
	tok, err := e.Allocator.LoadMeshRenderer(material, mesh)
	if err != nil {
		return tok, err
	}
	e.renderers[tok] = struct{}{}
	return tok, nil
}

// AddDeclaredMeshRenderer creates the mesh renderer declared under id
// in the asset stores, owned by the engine
func (e *Engine) AddDeclaredMeshRenderer(id asset.Hash) (resource.Token[resource.MeshRenderer], error) {
	tok, err := e.Allocator.LoadDeclaredMeshRenderer(id)
	if err != nil {
		return tok, err
	}
	e.renderers[tok] = struct{}{}
	return tok, nil
}

// RemoveMeshRenderer releases a mesh renderer created by AddMeshRenderer
func (e *Engine) RemoveMeshRenderer(tok resource.Token[resource.MeshRenderer]) {
	if _, ok := e.renderers[tok]; !ok {
		return
	}
	delete(e.renderers, tok)
	e.Allocator.ReleaseMeshRenderer(tok)
}

// MeshRenderers returns the number of mesh renderers owned
func (e *Engine) MeshRenderers() int {
	return len(e.renderers)
}

// Frame runs the resource steps of one frame
func (e *Engine) Frame() {
	e.Allocator.Step(e.device)
	e.frames++
}

// Frames returns the number of frames run
func (e *Engine) Frames() int {
	return e.frames
}

// Run runs a frame on every tick until ctx is done or, when
// frames is positive, that many frames have run.
func (e *Engine) Run(ctx context.Context, frames int) error {
	for start := e.frames; frames <= 0 || e.frames-start < frames; {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-e.time.FpsTicker().C:
			e.Frame()
		case <-e.time.EventTicker().C:
			e.log.WithField("stats", e.Allocator.Stats()).Debug("resources")
		}
	}
	return nil
}

// Shutdown releases every mesh renderer still owned, runs the last
// frame and closes the stores and the device. Resources still held
// by anyone else are reported with resource.ErrLeakedResources.
func (e *Engine) Shutdown() error {
	for tok := range e.renderers {
		e.Allocator.ReleaseMeshRenderer(tok)
	}
	e.renderers = make(map[resource.Token[resource.MeshRenderer]]struct{})

	err := e.Allocator.Shutdown(e.device)
	e.time.Stop()
	e.close()
	e.device.Destroy()
	return err
}

func (e *Engine) close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.log.WithError(err).Warn("closing store failed")
		}
	}
	e.closers = nil
}
