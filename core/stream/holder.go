package stream

import (
	"cmp"
	"slices"
)

// holder keeps the streams registered for one interface in notification
// order. Sorting is deferred until the ordered view is requested.
type holder struct {
	iface   Interface
	streams []Stream
	members map[Stream]struct{}
	// prioritized tracks members with a non-zero priority.
	prioritized map[Stream]struct{}
	needSort    bool
}

func newHolder(iface Interface) *holder {
	return &holder{
		iface:       iface,
		members:     make(map[Stream]struct{}),
		prioritized: make(map[Stream]struct{}),
	}
}

func (h *holder) size() int { return len(h.streams) }

func (h *holder) add(s Stream) bool {
	if _, ok := h.members[s]; ok {
		return false
	}
	h.members[s] = struct{}{}
	h.streams = append(h.streams, s)
	if len(h.prioritized) > 0 {
		h.needSort = true
	}
	return true
}

func (h *holder) remove(s Stream) bool {
	if _, ok := h.members[s]; !ok {
		return false
	}
	delete(h.members, s)
	delete(h.prioritized, s)
	h.streams = slices.DeleteFunc(h.streams, func(o Stream) bool { return o == s })
	return true
}

func (h *holder) priorityChanged(s Stream, priority int) {
	if _, ok := h.members[s]; !ok {
		return
	}
	if priority == 0 {
		delete(h.prioritized, s)
	} else {
		h.prioritized[s] = struct{}{}
	}
	h.needSort = true
}

// snapshot returns a copy of the streams, sorting them first if a change
// is pending. Higher priorities come first. The sort is stable over the
// current order, so equal priorities keep their relative position from the
// previous sort rather than their registration order.
func (h *holder) snapshot(priority func(Stream) int) ([]Stream, bool) {
	sorted := false
	if h.needSort {
		if len(h.streams) > 1 {
			slices.SortStableFunc(h.streams, func(a, b Stream) int {
				return cmp.Compare(priority(b), priority(a))
			})
			sorted = true
		}
		h.needSort = false
	}
	return slices.Clone(h.streams), sorted
}
