package stream

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/streamhub/core/events"
)

// dispatch is the state of one proxy invocation.
type dispatch struct {
	hub    *Hub
	proxy  *Proxy
	method *method
	args   []any
	in     []reflect.Value

	id         string
	start      time.Time
	candidates int
	invoked    int
	fallback   bool
	broken     bool
}

func (h *Hub) dispatch(p *Proxy, m *method, args []any) (any, error) {
	in, err := m.in(args)
	if err != nil {
		return nil, err
	}
	d := &dispatch{hub: h, proxy: p, method: m, args: args, in: in, start: time.Now()}
	if h.Debug() || h.events != nil {
		d.id = uuid.NewString()
	}

	result, err := d.run()
	h.publish(d.event(err))
	if err != nil {
		h.tracef("notify failed error:%v id:%s", err, d.id)
		return nil, err
	}

	raw := result
	result = m.normalize(result)
	if raw == nil && result != nil {
		h.tracef("result type:%v but method result is nil, so set to %v id:%s", m.result, result, d.id)
	}
	h.tracef("notify finish return:%v id:%s", result, d.id)

	if p.cfg.sticky {
		h.sticky.record(p.info.iface, p.cfg.tag, m, args)
	}
	return result, nil
}

func (d *dispatch) run() (any, error) {
	h, p, m := d.hub, d.proxy, d.method
	iface := p.info.iface

	streams := h.reg.streams(iface)
	d.candidates = len(streams)
	if h.Debug() {
		h.tracew("notify", map[string]any{
			"id":        d.id,
			"interface": iface.Name(),
			"method":    m.name,
			"args":      d.args,
			"tag":       p.cfg.tag,
			"count":     d.candidates,
		})
	}

	if len(streams) == 0 {
		def, err := h.defaults.Resolve(iface)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, nil
		}
		streams = []Stream{def}
		d.fallback = true
		h.tracef("use default stream:%s id:%s", streamName(def), d.id)
	}

	cb := p.cfg.callback
	collect := p.cfg.filter != nil && !m.void()
	var results []any
	var result any

	for _, s := range streams {
		var st *connectionState
		if !d.fallback {
			st = h.reg.state(s, iface)
			if st == nil {
				h.tracef("connection of %s is gone id:%s", streamName(s), d.id)
				continue
			}
			if !h.match(p.cfg.tag, s.TagForStream(iface)) {
				continue
			}
		}

		if cb != nil && cb.BeforeDispatch(s, m.name, d.args) {
			h.tracef("proxy broken dispatch before id:%s", d.id)
			d.broken = true
			break
		}

		var (
			v      any
			broken bool
			err    error
		)
		if st != nil {
			v, broken, err = st.guard(func() (any, error) { return m.call(s, d.in) })
		} else {
			v, err = m.call(s, d.in)
		}
		if err != nil {
			return nil, err
		}

		h.tracef("notify index:%d return:%v stream:%s break:%t id:%s", d.invoked, v, streamName(s), broken, d.id)
		d.invoked++
		result = v
		if collect {
			results = append(results, v)
		}

		if cb != nil && cb.AfterDispatch(s, m.name, d.args, v) {
			h.tracef("proxy broken dispatch after id:%s", d.id)
			d.broken = true
			break
		}
		if broken {
			d.broken = true
			break
		}
	}

	if collect && len(results) > 0 {
		result = p.cfg.filter.Filter(m.name, d.args, results)
		h.tracef("proxy filter result:%v id:%s", result, d.id)
	}
	return result, nil
}

func (d *dispatch) event(err error) events.Dispatched {
	ev := events.Dispatched{
		ID:         d.id,
		Interface:  d.proxy.info.iface.Name(),
		Method:     d.method.name,
		Candidates: d.candidates,
		Invoked:    d.invoked,
		Fallback:   d.fallback,
		Broken:     d.broken,
		Sticky:     d.proxy.cfg.sticky,
		Duration:   time.Since(d.start),
		Err:        err,
		Time:       d.start,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if tag := d.proxy.cfg.tag; tag != nil {
		ev.Tag = fmt.Sprint(tag)
	}
	return ev
}
