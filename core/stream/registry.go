package stream

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// registry maps interfaces to their holders and streams to their
// connections. A single lock guards both maps so that priority changes and
// resorting never interleave.
type registry struct {
	hub *Hub

	mu          sync.Mutex
	interfaces  map[Interface]*interfaceInfo
	holders     map[Interface]*holder
	connections map[Stream]*Connection
}

func newRegistry(h *Hub) *registry {
	return &registry{
		hub:         h,
		interfaces:  make(map[Interface]*interfaceInfo),
		holders:     make(map[Interface]*holder),
		connections: make(map[Stream]*Connection),
	}
}

func (r *registry) declare(iface Interface) (*interfaceInfo, error) {
	if iface.IsZero() {
		return nil, fmt.Errorf("%w: zero interface", ErrInvalidInterface)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.interfaces[iface]; ok {
		return info, nil
	}
	info, err := inspect(iface)
	if err != nil {
		return nil, err
	}
	r.interfaces[iface] = info
	return info, nil
}

func (r *registry) info(iface Interface) (*interfaceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.interfaces[iface]
	return info, ok
}

// conforming returns the tracked interfaces implemented by t, sorted by name.
// The caller must hold r.mu.
func (r *registry) conforming(t reflect.Type) []Interface {
	var out []Interface
	for iface := range r.interfaces {
		if t.Implements(iface.t) {
			out = append(out, iface)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (r *registry) tracked(t reflect.Type) []Interface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conforming(t)
}

func (r *registry) register(s Stream) (*Connection, bool, error) {
	if err := checkStream(s); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.connections[s]; ok {
		return conn, false, nil
	}

	ifaces := r.conforming(reflect.TypeOf(s))
	if len(ifaces) == 0 {
		return nil, false, fmt.Errorf("%w: %T implements no declared stream interface", ErrInvalidImplementation, s)
	}

	conn := newConnection(r.hub, s, ifaces, r.priorityChanged)
	for _, iface := range ifaces {
		h, ok := r.holders[iface]
		if !ok {
			h = newHolder(iface)
			r.holders[iface] = h
		}
		if h.add(s) {
			r.hub.tracef("+++++ register interface:%s stream:%s size:%d", iface, streamName(s), h.size())
		}
	}
	r.connections[s] = conn
	return conn, true, nil
}

func (r *registry) unregister(s Stream) (*Connection, bool) {
	if s == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[s]
	if !ok {
		return nil, false
	}
	delete(r.connections, s)

	for iface := range conn.states {
		h, ok := r.holders[iface]
		if !ok {
			continue
		}
		if h.remove(s) {
			if h.size() == 0 {
				delete(r.holders, iface)
			}
			r.hub.tracef("----- unregister interface:%s stream:%s size:%d", iface, streamName(s), h.size())
		}
	}
	return conn, true
}

func (r *registry) connection(s Stream) (*Connection, bool) {
	if s == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[s]
	return conn, ok
}

func (r *registry) state(s Stream, iface Interface) *connectionState {
	conn, ok := r.connection(s)
	if !ok {
		return nil
	}
	return conn.states[iface]
}

func (r *registry) size(iface Interface) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.holders[iface]; ok {
		return h.size()
	}
	return 0
}

// streams returns the ordered streams of iface. The slice is a copy owned
// by the caller.
func (r *registry) streams(iface Interface) []Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holders[iface]
	if !ok {
		return nil
	}
	out, sorted := h.snapshot(func(s Stream) int {
		if conn, ok := r.connections[s]; ok {
			if st, ok := conn.states[iface]; ok {
				return st.getPriority()
			}
		}
		return 0
	})
	if sorted {
		r.hub.tracef("sort streams for interface:%s", iface)
	}
	return out
}

func (r *registry) priorityChanged(s Stream, iface Interface) {
	r.mu.Lock()
	conn, ok := r.connections[s]
	h, hok := r.holders[iface]
	if !ok || !hok {
		r.mu.Unlock()
		return
	}
	priority := conn.states[iface].getPriority()
	h.priorityChanged(s, priority)
	prioritized := len(h.prioritized)
	r.mu.Unlock()

	r.hub.tracef("priority changed priority:%d interface:%s prioritized:%d stream:%s", priority, iface, prioritized, streamName(s))
	r.hub.publishPriority(s, iface, priority)
}

// checkStream enforces reference identity and rejects proxy adapters.
func checkStream(s Stream) error {
	if s == nil {
		return fmt.Errorf("%w: nil stream", ErrInvalidImplementation)
	}
	if _, ok := s.(proxied); ok {
		return fmt.Errorf("%w: %T is a proxy", ErrInvalidImplementation, s)
	}
	if reflect.TypeOf(s).Kind() != reflect.Pointer || reflect.ValueOf(s).IsNil() {
		return fmt.Errorf("%w: %T must be a non-nil pointer", ErrInvalidImplementation, s)
	}
	return nil
}
