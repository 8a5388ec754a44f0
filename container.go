package vfskit

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Component is a managed part of a manager: providers, file systems and
// services. The owner sets the context, then calls Init once and Close once.
type Component interface {
	SetContext(vctx Context)
	Init(ctx context.Context) error
	Close() error
}

// BaseComponent holds the context of a component. Embed it to get no-op
// lifecycle methods.
type BaseComponent struct {
	mu   sync.RWMutex
	vctx Context
}

// SetContext implements Component
func (c *BaseComponent) SetContext(vctx Context) {
	c.mu.Lock()
	c.vctx = vctx
	c.mu.Unlock()
}

// Context returns the component context, or nil before SetContext.
func (c *BaseComponent) Context() Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vctx
}

// Logger returns the context logger, or slog.Default when there is no context.
func (c *BaseComponent) Logger() *slog.Logger {
	if vctx := c.Context(); vctx != nil {
		if l := vctx.Logger(); l != nil {
			return l
		}
	}
	return slog.Default()
}

// Init implements Component
func (c *BaseComponent) Init(context.Context) error { return nil }

// Close implements Component
func (c *BaseComponent) Close() error { return nil }

// Container owns a set of components. Components added to it receive its
// context and are initialised; closing the container closes them in reverse
// order of addition.
type Container struct {
	BaseComponent

	componentsMu sync.Mutex
	components   []any
}

// AddComponent initialises comp if it is a Component and records it. Adding
// the same component twice has no effect.
func (c *Container) AddComponent(ctx context.Context, comp any) error {
	c.componentsMu.Lock()
	defer c.componentsMu.Unlock()

	if slices.Contains(c.components, comp) {
		return nil
	}
	if lc, ok := comp.(Component); ok {
		lc.SetContext(c.Context())
		if err := lc.Init(ctx); err != nil {
			return err
		}
	}
	c.components = append(c.components, comp)
	return nil
}

// RemoveComponent forgets comp without closing it.
func (c *Container) RemoveComponent(comp any) {
	c.componentsMu.Lock()
	defer c.componentsMu.Unlock()
	if i := slices.Index(c.components, comp); i >= 0 {
		c.components = slices.Delete(c.components, i, i+1)
	}
}

// Components returns a snapshot of the managed components.
func (c *Container) Components() []any {
	c.componentsMu.Lock()
	defer c.componentsMu.Unlock()
	return slices.Clone(c.components)
}

// Close closes every managed component, newest first, and forgets them.
func (c *Container) Close() error {
	c.componentsMu.Lock()
	components := c.components
	c.components = nil
	c.componentsMu.Unlock()

	var result *multierror.Error
	for i := len(components) - 1; i >= 0; i-- {
		switch comp := components[i].(type) {
		case Component:
			if err := comp.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		case io.Closer:
			if err := comp.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}
