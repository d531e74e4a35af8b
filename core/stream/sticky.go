package stream

import (
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/streamhub/core/events"
)

// stickyStore records the void calls made through sticky proxies, keyed by
// interface and proxy tag. Records only live while at least one sticky
// proxy of the interface is open.
type stickyStore struct {
	hub *Hub

	mu      sync.Mutex
	proxies map[Interface]int
	records map[Interface]map[any]*stickyRecord
}

// stickyRecord keeps the latest arguments of each method, in the order
// the methods were first called.
type stickyRecord struct {
	order []string
	args  map[string][]any
}

type stickyCall struct {
	method string
	args   []any
}

func newStickyStore(h *Hub) *stickyStore {
	return &stickyStore{
		hub:     h,
		proxies: make(map[Interface]int),
		records: make(map[Interface]map[any]*stickyRecord),
	}
}

func (s *stickyStore) proxyCreated(iface Interface) {
	s.mu.Lock()
	s.proxies[iface]++
	count := s.proxies[iface]
	s.mu.Unlock()
	s.hub.tracef("+++++ sticky proxy created interface:%s count:%d", iface, count)
}

func (s *stickyStore) proxyClosed(iface Interface) {
	s.mu.Lock()
	count := s.proxies[iface] - 1
	if count <= 0 {
		count = 0
		delete(s.proxies, iface)
		delete(s.records, iface)
	} else {
		s.proxies[iface] = count
	}
	s.mu.Unlock()
	s.hub.tracef("----- sticky proxy closed interface:%s count:%d", iface, count)
}

// active returns the number of open sticky proxies of iface.
func (s *stickyStore) active(iface Interface) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxies[iface]
}

// record saves args as the latest call of m for (iface, tag). Calls without
// arguments and calls returning a value are not recorded.
func (s *stickyStore) record(iface Interface, tag any, m *method, args []any) bool {
	if len(args) == 0 || !m.void() {
		return false
	}
	if !comparableTag(tag) {
		s.hub.log.Warnf("sticky call %s.%s not recorded: tag %T is not comparable", iface, m.name, tag)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proxies[iface] == 0 {
		return false
	}
	byTag, ok := s.records[iface]
	if !ok {
		byTag = make(map[any]*stickyRecord)
		s.records[iface] = byTag
	}
	rec, ok := byTag[tag]
	if !ok {
		rec = &stickyRecord{args: make(map[string][]any)}
		byTag[tag] = rec
	}
	if _, seen := rec.args[m.name]; !seen {
		rec.order = append(rec.order, m.name)
	}
	rec.args[m.name] = slices.Clone(args)
	s.hub.tracef("sticky record interface:%s tag:%v method:%s args:%v", iface, tag, m.name, args)
	return true
}

func (s *stickyStore) pending(iface Interface, tag any) []stickyCall {
	if !comparableTag(tag) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[iface][tag]
	if !ok {
		return nil
	}
	calls := make([]stickyCall, 0, len(rec.order))
	for _, name := range rec.order {
		calls = append(calls, stickyCall{method: name, args: slices.Clone(rec.args[name])})
	}
	return calls
}

// replay invokes the pending calls on target outside of the store lock.
// When st is not nil the calls run inside its break flag critical section.
func (s *stickyStore) replay(target Stream, info *interfaceInfo, st *connectionState) (bool, error) {
	tag := target.TagForStream(info.iface)
	calls := s.pending(info.iface, tag)
	if len(calls) == 0 {
		return false, nil
	}
	s.hub.tracef("sticky replay interface:%s stream:%s tag:%v calls:%d", info.iface, streamName(target), tag, len(calls))

	for _, c := range calls {
		m, err := info.method(c.method)
		if err != nil {
			return false, err
		}
		in, err := m.in(c.args)
		if err != nil {
			return false, err
		}
		invoke := func() (any, error) { return m.call(target, in) }
		if st != nil {
			_, _, err = st.guard(invoke)
		} else {
			_, err = invoke()
		}
		if err != nil {
			return false, err
		}
	}

	s.hub.publish(events.StickyReplayed{
		Stream:    streamName(target),
		Interface: info.iface.Name(),
		Calls:     len(calls),
		Time:      time.Now(),
	})
	return true, nil
}
