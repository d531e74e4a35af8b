package stream

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"
	"weak"

	"github.com/kilianp07/streamhub/core/events"
)

// DefaultFactory builds the fallback stream used by a proxy when no stream
// is registered for its interface. Built streams are cached per interface
// and are never added to the registry.
type DefaultFactory struct {
	hub *Hub

	mu       sync.Mutex
	bindings map[Interface]*defaultBinding
	cache    defaultCache
}

type defaultBinding struct {
	impl   reflect.Type
	create func() (Stream, error)
	// weak returns a loader observing s without keeping it alive.
	weak func(s Stream) func() Stream
	// cleanup schedules fn to run once s has been collected.
	cleanup func(s Stream, fn func())
}

func newDefaultFactory(h *Hub, cache defaultCache) *DefaultFactory {
	return &DefaultFactory{
		hub:      h,
		bindings: make(map[Interface]*defaultBinding),
		cache:    cache,
	}
}

// RegisterDefault registers *T, built with new(T), as the fallback of every
// declared interface *T implements.
func RegisterDefault[T any, PT interface {
	*T
	Stream
}](f *DefaultFactory) error {
	return RegisterDefaultFunc[T, PT](f, func() (PT, error) { return PT(new(T)), nil })
}

// RegisterDefaultFunc is like RegisterDefault but builds the fallback with
// ctor. Errors and panics of ctor are reported as ErrFactory by Resolve.
//
// With the weak cache, ctor must return a fresh heap allocation: a pointer
// to a package level variable cannot be held weakly and aborts the process.
// Zero-size types are the exception, their single instance is held
// strongly.
func RegisterDefaultFunc[T any, PT interface {
	*T
	Stream
}](f *DefaultFactory, ctor func() (PT, error)) error {
	if ctor == nil {
		return fmt.Errorf("%w: nil constructor", ErrInvalidImplementation)
	}
	b := &defaultBinding{
		impl: reflect.TypeFor[PT](),
		create: func() (Stream, error) {
			p, err := ctor()
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, errors.New("constructor returned nil")
			}
			return p, nil
		},
		weak: func(s Stream) func() Stream {
			wp := weak.Make((*T)(s.(PT)))
			return func() Stream {
				if p := wp.Value(); p != nil {
					return PT(p)
				}
				return nil
			}
		},
		cleanup: func(s Stream, fn func()) {
			runtime.AddCleanup((*T)(s.(PT)), func(fn func()) { fn() }, fn)
		},
	}
	// new(T) of a zero-size type is not a heap object.
	if reflect.TypeFor[T]().Size() == 0 {
		b.weak = func(s Stream) func() Stream { return func() Stream { return s } }
		b.cleanup = func(Stream, func()) {}
	}
	return f.register(b)
}

func (f *DefaultFactory) register(b *defaultBinding) error {
	ifaces := f.hub.reg.tracked(b.impl)
	if len(ifaces) == 0 {
		return fmt.Errorf("%w: %s implements no declared stream interface", ErrInvalidImplementation, typeName(b.impl))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, iface := range ifaces {
		if old, ok := f.bindings[iface]; ok && old.impl != b.impl {
			f.cache.release(iface)
		}
		f.bindings[iface] = b
		f.hub.tracef("register default interface:%s implementation:%s", iface, typeName(b.impl))
	}
	return nil
}

// Unregister removes impl as fallback of every interface it was registered
// for and returns the number of interfaces affected.
func (f *DefaultFactory) Unregister(impl reflect.Type) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for iface, b := range f.bindings {
		if b.impl == impl {
			delete(f.bindings, iface)
			f.cache.release(iface)
			n++
		}
	}
	return n
}

// Release drops the cached fallback of iface so the next Resolve builds a
// new one.
func (f *DefaultFactory) Release(iface Interface) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.release(iface)
}

// Cached returns the number of cached fallback streams.
func (f *DefaultFactory) Cached() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.drain()
	return f.cache.len()
}

// Resolve returns the fallback stream of iface, or nil when none is
// registered. A cached instance is reused while the cache holds it.
func (f *DefaultFactory) Resolve(iface Interface) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bindings[iface]
	if !ok {
		return nil, nil
	}
	if n := f.cache.drain(); n > 0 {
		f.hub.tracef("release default references count:%d size:%d", n, f.cache.len())
	}
	if s := f.cache.load(iface); s != nil {
		return s, nil
	}

	s, err := b.build()
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %v", ErrFactory, typeName(b.impl), iface, err)
	}
	f.cache.store(iface, s, b)
	f.hub.tracef("+++++ cache default interface:%s stream:%s size:%d", iface, streamName(s), f.cache.len())
	f.hub.publish(events.DefaultCreated{
		Interface:      iface.Name(),
		Implementation: typeName(b.impl),
		Time:           time.Now(),
	})
	return s, nil
}

func (b *defaultBinding) build() (s Stream, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return b.create()
}

// defaultCache stores built fallback streams. Callers hold the factory lock.
type defaultCache interface {
	// drain forgets entries that can no longer be reused and returns how
	// many were removed.
	drain() int
	load(iface Interface) Stream
	store(iface Interface, s Stream, b *defaultBinding)
	release(iface Interface)
	len() int
}
