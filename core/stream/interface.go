package stream

import (
	"fmt"
	"reflect"
)

// Stream is implemented by every object registered on a Hub.
//
// TagForStream is called when a proxy of iface dispatches a call; only
// streams whose tag matches the proxy tag are notified.
type Stream interface {
	TagForStream(iface Interface) any
}

var streamType = reflect.TypeFor[Stream]()

// Interface identifies a stream interface: a named Go interface type that
// embeds Stream. The zero value identifies nothing.
type Interface struct {
	t reflect.Type
}

// InterfaceOf returns the identity of T. It panics if T is not a named
// interface embedding Stream.
func InterfaceOf[T Stream]() Interface {
	iface, err := NewInterface(reflect.TypeFor[T]())
	if err != nil {
		panic(err)
	}
	return iface
}

// NewInterface returns the identity of t.
func NewInterface(t reflect.Type) (Interface, error) {
	if t == nil || t.Kind() != reflect.Interface {
		return Interface{}, fmt.Errorf("%w: %v is not an interface type", ErrInvalidInterface, t)
	}
	if t == streamType {
		return Interface{}, fmt.Errorf("%w: %v must not be used directly", ErrInvalidInterface, t)
	}
	if t.Name() == "" {
		return Interface{}, fmt.Errorf("%w: %v must be a named type", ErrInvalidInterface, t)
	}
	if !t.Implements(streamType) {
		return Interface{}, fmt.Errorf("%w: %v does not embed %v", ErrInvalidInterface, t, streamType)
	}
	return Interface{t: t}, nil
}

// Type returns the underlying interface type.
func (i Interface) Type() reflect.Type { return i.t }

// IsZero reports whether i identifies no interface.
func (i Interface) IsZero() bool { return i.t == nil }

// Name returns the package qualified interface name.
func (i Interface) Name() string {
	if i.t == nil {
		return "<nil>"
	}
	return i.t.PkgPath() + "." + i.t.Name()
}

func (i Interface) String() string { return i.Name() }

// ImplementedBy reports whether s implements i.
func (i Interface) ImplementedBy(s Stream) bool {
	if i.t == nil || s == nil {
		return false
	}
	return reflect.TypeOf(s).Implements(i.t)
}

func streamName(s Stream) string {
	return fmt.Sprintf("%T@%p", s, s)
}
