package stream

import (
	"fmt"
	"sync/atomic"
)

// DispatchCallback intercepts the notification of each stream. Returning
// true from either method stops the dispatch: before the stream is invoked
// for BeforeDispatch, after it for AfterDispatch.
type DispatchCallback interface {
	BeforeDispatch(s Stream, method string, args []any) bool
	AfterDispatch(s Stream, method string, args []any, result any) bool
}

// DispatchHooks adapts plain functions to DispatchCallback. Nil hooks never
// stop the dispatch.
type DispatchHooks struct {
	Before func(s Stream, method string, args []any) bool
	After  func(s Stream, method string, args []any, result any) bool
}

func (h DispatchHooks) BeforeDispatch(s Stream, method string, args []any) bool {
	return h.Before != nil && h.Before(s, method, args)
}

func (h DispatchHooks) AfterDispatch(s Stream, method string, args []any, result any) bool {
	return h.After != nil && h.After(s, method, args, result)
}

// ResultFilter selects the value returned to the caller from the results of
// every notified stream, in notification order.
type ResultFilter interface {
	Filter(method string, args []any, results []any) any
}

// ResultFilterFunc adapts a function to ResultFilter.
type ResultFilterFunc func(method string, args []any, results []any) any

func (f ResultFilterFunc) Filter(method string, args []any, results []any) any {
	return f(method, args, results)
}

// LastResult returns the result of the last notified stream.
var LastResult = ResultFilterFunc(func(_ string, _ []any, results []any) any {
	return results[len(results)-1]
})

// Proxy dispatches calls of one interface to the streams registered on its
// Hub. Typed adapters embed *Proxy and forward each interface method to
// Invoke:
//
//	type greeterProxy struct{ *stream.Proxy }
//
//	func (p greeterProxy) Greet(name string) (string, error) {
//		return stream.Call[string](p.Proxy, "Greet", name)
//	}
//
// A Proxy must be closed when it is no longer used; closing a sticky proxy
// releases the calls it recorded once no other sticky proxy of the same
// interface is open.
type Proxy struct {
	hub    *Hub
	info   *interfaceInfo
	cfg    proxyConfig
	closed atomic.Bool
}

func (p *Proxy) streamProxy() *Proxy { return p }

// Interface returns the interface dispatched by the proxy.
func (p *Proxy) Interface() Interface { return p.info.iface }

// Tag returns the proxy tag.
func (p *Proxy) Tag() any { return p.cfg.tag }

// Sticky reports whether void calls are recorded for replay.
func (p *Proxy) Sticky() bool { return p.cfg.sticky }

// TagForStream returns the proxy tag, so adapters embedding the proxy
// satisfy Stream.
func (p *Proxy) TagForStream(Interface) any { return p.cfg.tag }

// Invoke dispatches method with args to every matching stream and returns
// the resulting value. An error returned by a stream aborts the dispatch
// and is returned unchanged.
func (p *Proxy) Invoke(method string, args ...any) (any, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrProxyClosed, p.info.iface)
	}
	m, err := p.info.method(method)
	if err != nil {
		return nil, err
	}
	return p.hub.dispatch(p, m, args)
}

// Close releases the proxy. It is safe to call more than once.
func (p *Proxy) Close() error {
	if p.closed.CompareAndSwap(false, true) && p.cfg.sticky {
		p.hub.sticky.proxyClosed(p.info.iface)
	}
	return nil
}

// Call invokes method on p and converts the result to R. An absent result
// yields the zero value of R.
func Call[R any](p *Proxy, method string, args ...any) (R, error) {
	var zero R
	v, err := p.Invoke(method, args...)
	if err != nil || v == nil {
		return zero, err
	}
	r, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, method, v)
	}
	return r, nil
}
