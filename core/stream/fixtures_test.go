package stream

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/streamhub/core/events"
)

type Greeter interface {
	Stream
	Greet(name string) (string, error)
}

type Counter interface {
	Stream
	Count() int
	Add(n int)
}

type Listener interface {
	Stream
	OnEvent(kind string, payload any)
	SetLevel(level int)
	Reset()
}

type Finder interface {
	Stream
	Find(key string) *string
}

var (
	greeterIface  = InterfaceOf[Greeter]()
	counterIface  = InterfaceOf[Counter]()
	listenerIface = InterfaceOf[Listener]()
	finderIface   = InterfaceOf[Finder]()
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type greeter struct {
	id      string
	tag     any
	rec     *recorder
	err     error
	onGreet func(g *greeter)
}

func (g *greeter) TagForStream(Interface) any { return g.tag }

func (g *greeter) Greet(name string) (string, error) {
	if g.rec != nil {
		g.rec.add(g.id)
	}
	if g.onGreet != nil {
		g.onGreet(g)
	}
	if g.err != nil {
		return "", g.err
	}
	return g.id + ":" + name, nil
}

type counter struct {
	tag   any
	n     int
	added []int
}

func (c *counter) TagForStream(Interface) any { return c.tag }
func (c *counter) Count() int                 { return c.n }
func (c *counter) Add(n int) {
	c.n += n
	c.added = append(c.added, n)
}

type listener struct {
	tag    any
	events []string
}

func (l *listener) TagForStream(Interface) any { return l.tag }
func (l *listener) OnEvent(kind string, payload any) {
	l.events = append(l.events, fmt.Sprintf("%s=%v", kind, payload))
}
func (l *listener) SetLevel(level int) { l.events = append(l.events, fmt.Sprintf("level=%d", level)) }
func (l *listener) Reset()             { l.events = append(l.events, "reset") }

type finder struct {
	values map[string]string
}

func (*finder) TagForStream(Interface) any { return nil }
func (f *finder) Find(key string) *string {
	v, ok := f.values[key]
	if !ok {
		return nil
	}
	return &v
}

type fallbackGreeter struct {
	greeted int
}

func (*fallbackGreeter) TagForStream(Interface) any { return nil }
func (f *fallbackGreeter) Greet(name string) (string, error) {
	f.greeted++
	return "default:" + name, nil
}

// boxTag has a comparable type whose value may not be comparable.
type boxTag struct{ v any }

type greeterProxy struct{ *Proxy }

func (p greeterProxy) Greet(name string) (string, error) {
	return Call[string](p.Proxy, "Greet", name)
}

type capture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capture) Publish(ev events.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *capture) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind()
	}
	return out
}

func (c *capture) last(kind string) events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Kind() == kind {
			return c.events[i]
		}
	}
	return nil
}

type captureLogger struct {
	mu    sync.Mutex
	debug int
	warns []string
}

func (l *captureLogger) Debugf(string, ...any) { l.inc() }
func (l *captureLogger) Debugw(string, map[string]any) {
	l.inc()
}
func (l *captureLogger) Infof(string, ...any) {}
func (l *captureLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}
func (l *captureLogger) Errorf(string, ...any) {}

func (l *captureLogger) inc() {
	l.mu.Lock()
	l.debug++
	l.mu.Unlock()
}

func (l *captureLogger) debugCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func newTestHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New(opts...)
	require.NoError(t, h.Declare(greeterIface, counterIface, listenerIface, finderIface))
	return h
}

func mustRegister(t *testing.T, h *Hub, s Stream) *Connection {
	t.Helper()
	conn, err := h.Register(s)
	require.NoError(t, err)
	return conn
}

func ids(streams []Stream) []string {
	out := make([]string, len(streams))
	for i, s := range streams {
		out[i] = s.(*greeter).id
	}
	return out
}
