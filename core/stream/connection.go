package stream

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// connectionState is the per (stream, interface) dispatch state.
type connectionState struct {
	iface    Interface
	priority atomic.Int64
	broken   atomic.Bool

	// mu serializes priority writes so that a no-op write never notifies.
	mu sync.Mutex
	// callMu guards the reset, invoke, read sequence of the break flag.
	callMu sync.Mutex

	onPriorityChanged func(iface Interface)
}

func (c *connectionState) getPriority() int { return int(c.priority.Load()) }

func (c *connectionState) setPriority(p int) {
	c.mu.Lock()
	changed := c.getPriority() != p
	if changed {
		c.priority.Store(int64(p))
	}
	c.mu.Unlock()

	if changed && c.onPriorityChanged != nil {
		c.onPriorityChanged(c.iface)
	}
}

func (c *connectionState) breakDispatch() { c.broken.Store(true) }

// guard runs fn inside the break flag critical section and reports whether
// fn asked to stop the dispatch.
func (c *connectionState) guard(fn func() (any, error)) (any, bool, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	c.broken.Store(false)
	defer c.broken.Store(false)
	v, err := fn()
	return v, c.broken.Load(), err
}

// Connection is the registration entry of a stream. It is created by
// Hub.Register and stays valid until the stream is unregistered.
type Connection struct {
	hub    *Hub
	stream Stream
	states map[Interface]*connectionState
}

func newConnection(h *Hub, s Stream, ifaces []Interface, onChanged func(Stream, Interface)) *Connection {
	c := &Connection{hub: h, stream: s, states: make(map[Interface]*connectionState, len(ifaces))}
	for _, iface := range ifaces {
		c.states[iface] = &connectionState{
			iface: iface,
			onPriorityChanged: func(iface Interface) {
				onChanged(s, iface)
			},
		}
	}
	return c
}

// Stream returns the registered stream.
func (c *Connection) Stream() Stream { return c.stream }

// Interfaces returns the interfaces the stream was registered under, sorted by name.
func (c *Connection) Interfaces() []Interface {
	out := make([]Interface, 0, len(c.states))
	for iface := range c.states {
		out = append(out, iface)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Priority returns the priority of the stream for iface.
func (c *Connection) Priority(iface Interface) (int, error) {
	st, err := c.state(iface)
	if err != nil {
		return 0, err
	}
	return st.getPriority(), nil
}

// SetPriority sets the priority used to order the stream. Without ifaces
// the priority applies to every interface of the connection. Higher
// priorities are notified first.
func (c *Connection) SetPriority(priority int, ifaces ...Interface) error {
	if len(ifaces) == 0 {
		for _, st := range c.states {
			st.setPriority(priority)
		}
		return nil
	}
	for _, iface := range ifaces {
		st, err := c.state(iface)
		if err != nil {
			return err
		}
		st.setPriority(priority)
	}
	return nil
}

// BreakDispatch stops the dispatch in progress after the current call
// returns. It is meant to be called by the stream from inside its own
// method. Calls to a stream are serialized per interface, so a stream must
// not dispatch to itself through a proxy of the same interface.
func (c *Connection) BreakDispatch(iface Interface) error {
	st, err := c.state(iface)
	if err != nil {
		return err
	}
	st.breakDispatch()
	return nil
}

// Replay replays the sticky calls recorded for every interface of the
// connection and reports whether anything was replayed.
func (c *Connection) Replay() (bool, error) {
	replayed := false
	for _, iface := range c.Interfaces() {
		ok, err := c.hub.Replay(c.stream, iface)
		if err != nil {
			return replayed, err
		}
		replayed = replayed || ok
	}
	return replayed, nil
}

func (c *Connection) state(iface Interface) (*connectionState, error) {
	if !iface.ImplementedBy(c.stream) {
		return nil, fmt.Errorf("%w: %s by %s", ErrNotAssignable, iface, streamName(c.stream))
	}
	st, ok := c.states[iface]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered for %s", ErrInvalidInterface, iface, streamName(c.stream))
	}
	return st, nil
}
