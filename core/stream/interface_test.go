package stream

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainInterface interface {
	Greet(name string) string
}

type badResults interface {
	Stream
	Pair() (int, int)
}

type tooManyResults interface {
	Stream
	Triple() (int, string, error)
}

func TestInterfaceOf(t *testing.T) {
	assert.Equal(t, "github.com/kilianp07/streamhub/core/stream.Greeter", greeterIface.Name())
	assert.Equal(t, greeterIface, InterfaceOf[Greeter]())
	assert.Equal(t, reflect.TypeFor[Greeter](), greeterIface.Type())
	assert.False(t, greeterIface.IsZero())
	assert.True(t, Interface{}.IsZero())
	assert.Equal(t, "<nil>", Interface{}.String())
}

func TestNewInterfaceRejects(t *testing.T) {
	cases := map[string]reflect.Type{
		"nil":           nil,
		"not interface": reflect.TypeFor[int](),
		"stream":        reflect.TypeFor[Stream](),
		"unnamed":       reflect.TypeFor[interface{ Stream }](),
		"no stream":     reflect.TypeFor[plainInterface](),
	}
	for name, typ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewInterface(typ)
			assert.ErrorIs(t, err, ErrInvalidInterface)
		})
	}
	assert.Panics(t, func() { InterfaceOf[Stream]() })
}

func TestImplementedBy(t *testing.T) {
	assert.True(t, greeterIface.ImplementedBy(&greeter{}))
	assert.False(t, counterIface.ImplementedBy(&greeter{}))
	assert.False(t, greeterIface.ImplementedBy(nil))
	assert.False(t, Interface{}.ImplementedBy(&greeter{}))
}

func TestDeclareRejectsUnsupportedResults(t *testing.T) {
	h := New()
	for _, iface := range []Interface{InterfaceOf[badResults](), InterfaceOf[tooManyResults]()} {
		err := h.Declare(iface)
		assert.True(t, errors.Is(err, ErrInvalidInterface), "%s: %v", iface, err)
		_, err = h.NewProxy(iface)
		assert.ErrorIs(t, err, ErrInvalidInterface)
	}
	require.ErrorIs(t, h.Declare(Interface{}), ErrInvalidInterface)
}

func TestInspectMethods(t *testing.T) {
	info, err := inspect(listenerIface)
	require.NoError(t, err)
	assert.Len(t, info.methods, 3)
	assert.NotContains(t, info.methods, "TagForStream")

	info, err = inspect(greeterIface)
	require.NoError(t, err)
	m, err := info.method("Greet")
	require.NoError(t, err)
	assert.True(t, m.returnsErr)
	assert.Equal(t, reflect.TypeFor[string](), m.result)
	assert.False(t, m.void())

	_, err = info.method("Wave")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
