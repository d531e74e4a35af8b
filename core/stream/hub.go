package stream

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/kilianp07/streamhub/core/events"
	"github.com/kilianp07/streamhub/core/logger"
)

// Publisher receives the events emitted by a Hub. eventbus.Bus satisfies it.
type Publisher interface {
	Publish(events.Event)
}

// Hub owns the stream registry, the default stream factory and the sticky
// call store. All operations are safe for concurrent use.
type Hub struct {
	reg      *registry
	defaults *DefaultFactory
	sticky   *stickyStore

	log    logger.Logger
	events Publisher
	match  TagMatcher
	debug  atomic.Bool
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	cfg := hubConfig{
		log:   logger.NopLogger{},
		match: EqualTags,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Hub{
		log:    cfg.log,
		events: cfg.events,
		match:  cfg.match,
	}
	h.debug.Store(cfg.debug)
	h.reg = newRegistry(h)
	h.sticky = newStickyStore(h)

	var cache defaultCache
	if cfg.defaultTTL > 0 {
		cache = newTTLCache(cfg.defaultTTL)
	} else {
		cache = newWeakCache()
	}
	h.defaults = newDefaultFactory(h, cache)
	return h
}

// SetDebug toggles verbose tracing of registration, dispatch, sorting and
// cache events. It has no behavioral effect.
func (h *Hub) SetDebug(on bool) { h.debug.Store(on) }

// Debug reports whether verbose tracing is enabled.
func (h *Hub) Debug() bool { return h.debug.Load() }

// Declare makes ifaces known to the hub. Streams are only registered under
// interfaces declared before their registration.
func (h *Hub) Declare(ifaces ...Interface) error {
	for _, iface := range ifaces {
		if _, err := h.reg.declare(iface); err != nil {
			return err
		}
	}
	return nil
}

// Register registers s under every declared interface it implements. It is
// idempotent: registering the same stream again returns its existing
// connection.
func (h *Hub) Register(s Stream) (*Connection, error) {
	conn, created, err := h.reg.register(s)
	if err != nil {
		return nil, err
	}
	if created {
		h.publish(events.StreamRegistered{
			Stream:     streamName(s),
			Interfaces: interfaceNames(conn.Interfaces()),
			Time:       time.Now(),
		})
	}
	return conn, nil
}

// Unregister removes s from every interface it was registered under. It is
// a no-op for streams that are not registered.
func (h *Hub) Unregister(s Stream) {
	conn, ok := h.reg.unregister(s)
	if !ok {
		return
	}
	h.publish(events.StreamUnregistered{
		Stream:     streamName(s),
		Interfaces: interfaceNames(conn.Interfaces()),
		Time:       time.Now(),
	})
}

// Connection returns the connection of a registered stream.
func (h *Hub) Connection(s Stream) (*Connection, bool) {
	return h.reg.connection(s)
}

// Streams returns the streams registered for iface in notification order.
func (h *Hub) Streams(iface Interface) []Stream {
	return h.reg.streams(iface)
}

// Defaults returns the factory of fallback streams.
func (h *Hub) Defaults() *DefaultFactory { return h.defaults }

// NewProxy creates a proxy dispatching calls of iface to the registered
// streams. iface is declared if it was not already.
func (h *Hub) NewProxy(iface Interface, opts ...ProxyOption) (*Proxy, error) {
	info, err := h.reg.declare(iface)
	if err != nil {
		return nil, err
	}
	p := &Proxy{hub: h, info: info}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	if p.cfg.sticky {
		h.sticky.proxyCreated(iface)
	}
	return p, nil
}

// Replay invokes on s the sticky calls recorded for iface under the tag s
// reports for iface. It returns false when nothing was recorded.
func (h *Hub) Replay(s Stream, iface Interface) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("%w: nil stream", ErrInvalidImplementation)
	}
	info, ok := h.reg.info(iface)
	if !ok {
		return false, fmt.Errorf("%w: %s is not declared", ErrInvalidInterface, iface)
	}
	if !iface.ImplementedBy(s) {
		return false, fmt.Errorf("%w: %s by %s", ErrNotAssignable, iface, streamName(s))
	}
	return h.sticky.replay(s, info, h.reg.state(s, iface))
}

func (h *Hub) tracef(format string, args ...any) {
	if h.debug.Load() {
		h.log.Debugf(format, args...)
	}
}

func (h *Hub) tracew(msg string, fields map[string]any) {
	if h.debug.Load() {
		h.log.Debugw(msg, fields)
	}
}

func (h *Hub) publish(ev events.Event) {
	if h.events != nil {
		h.events.Publish(ev)
	}
}

func (h *Hub) publishPriority(s Stream, iface Interface, priority int) {
	h.publish(events.PriorityChanged{
		Stream:    streamName(s),
		Interface: iface.Name(),
		Priority:  priority,
		Time:      time.Now(),
	})
}

// proxied is implemented by Proxy and every adapter embedding it.
type proxied interface {
	streamProxy() *Proxy
}

func interfaceNames(ifaces []Interface) []string {
	out := make([]string, len(ifaces))
	for i, iface := range ifaces {
		out[i] = iface.Name()
	}
	return out
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
