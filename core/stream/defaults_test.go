package stream

import (
	"errors"
	"reflect"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/streamhub/core/events"
)

func TestRegisterDefaultRequiresDeclaredInterface(t *testing.T) {
	h := New()
	err := RegisterDefault[fallbackGreeter](h.Defaults())
	assert.ErrorIs(t, err, ErrInvalidImplementation)

	require.NoError(t, h.Declare(greeterIface))
	require.NoError(t, RegisterDefault[fallbackGreeter](h.Defaults()))

	err = RegisterDefaultFunc[fallbackGreeter, *fallbackGreeter](h.Defaults(), nil)
	assert.ErrorIs(t, err, ErrInvalidImplementation)
}

func TestResolveWithoutDefault(t *testing.T) {
	h := newTestHub(t)
	s, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestResolveReusesCachedInstance(t *testing.T) {
	bus := &capture{}
	h := newTestHub(t, WithEventBus(bus))
	var built atomic.Int32
	require.NoError(t, RegisterDefaultFunc(h.Defaults(), func() (*fallbackGreeter, error) {
		built.Add(1)
		return &fallbackGreeter{}, nil
	}))

	first, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	second, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, built.Load())
	assert.Equal(t, 1, h.Defaults().Cached())

	ev, ok := bus.last("default_created").(events.DefaultCreated)
	require.True(t, ok)
	assert.Equal(t, greeterIface.Name(), ev.Interface)
	assert.Equal(t, "*github.com/kilianp07/streamhub/core/stream.fallbackGreeter", ev.Implementation)
	runtime.KeepAlive(first)
}

func TestWeakCacheDropsCollectedInstance(t *testing.T) {
	h := newTestHub(t)
	var built atomic.Int32
	require.NoError(t, RegisterDefaultFunc(h.Defaults(), func() (*fallbackGreeter, error) {
		built.Add(1)
		return &fallbackGreeter{}, nil
	}))

	func() {
		s, err := h.Defaults().Resolve(greeterIface)
		require.NoError(t, err)
		require.NotNil(t, s)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return h.Defaults().Cached() == 0
	}, 5*time.Second, 10*time.Millisecond)

	s, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.EqualValues(t, 2, built.Load())
}

func TestTTLCacheExpires(t *testing.T) {
	h := newTestHub(t, WithDefaultCacheTTL(50*time.Millisecond))
	var built atomic.Int32
	require.NoError(t, RegisterDefaultFunc(h.Defaults(), func() (*fallbackGreeter, error) {
		built.Add(1)
		return &fallbackGreeter{}, nil
	}))

	first, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	again, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	assert.Same(t, first, again)

	time.Sleep(120 * time.Millisecond)
	assert.Zero(t, h.Defaults().Cached())

	fresh, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.EqualValues(t, 2, built.Load())
}

func TestReleaseForcesRebuild(t *testing.T) {
	h := newTestHub(t)
	var built atomic.Int32
	require.NoError(t, RegisterDefaultFunc(h.Defaults(), func() (*fallbackGreeter, error) {
		built.Add(1)
		return &fallbackGreeter{}, nil
	}))

	first, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)
	h.Defaults().Release(greeterIface)
	second, err := h.Defaults().Resolve(greeterIface)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, built.Load())
	runtime.KeepAlive(first)
}

func TestConstructorFailures(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]func() (*fallbackGreeter, error){
		"error": func() (*fallbackGreeter, error) { return nil, boom },
		"panic": func() (*fallbackGreeter, error) { panic("no constructor") },
		"nil":   func() (*fallbackGreeter, error) { return nil, nil },
	}
	for name, ctor := range cases {
		t.Run(name, func(t *testing.T) {
			h := newTestHub(t)
			require.NoError(t, RegisterDefaultFunc(h.Defaults(), ctor))

			_, err := h.Defaults().Resolve(greeterIface)
			assert.ErrorIs(t, err, ErrFactory)

			p, err := h.NewProxy(greeterIface)
			require.NoError(t, err)
			_, err = p.Invoke("Greet", "x")
			assert.ErrorIs(t, err, ErrFactory)
			assert.Zero(t, h.Defaults().Cached())
		})
	}
}

func TestUnregisterDefault(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, RegisterDefault[fallbackGreeter](h.Defaults()))
	p, err := h.NewProxy(greeterIface)
	require.NoError(t, err)

	got, err := Call[string](p, "Greet", "x")
	require.NoError(t, err)
	assert.Equal(t, "default:x", got)

	assert.Equal(t, 1, h.Defaults().Unregister(reflect.TypeFor[*fallbackGreeter]()))
	assert.Zero(t, h.Defaults().Unregister(reflect.TypeFor[*fallbackGreeter]()))

	got, err = Call[string](p, "Greet", "x")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDefaultIsNotRegistered(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, RegisterDefault[fallbackGreeter](h.Defaults()))
	p, err := h.NewProxy(greeterIface)
	require.NoError(t, err)

	_, err = p.Invoke("Greet", "x")
	require.NoError(t, err)
	assert.Empty(t, h.Streams(greeterIface))
}

type zeroGreeter struct{}

func (*zeroGreeter) TagForStream(Interface) any           { return nil }
func (*zeroGreeter) Greet(name string) (string, error) { return "zero:" + name, nil }

func TestZeroSizeDefault(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, RegisterDefault[zeroGreeter](h.Defaults()))

	p, err := h.NewProxy(greeterIface)
	require.NoError(t, err)
	defer p.Close()

	got, err := Call[string](p, "Greet", "x")
	require.NoError(t, err)
	assert.Equal(t, "zero:x", got)

	runtime.GC()
	got, err = Call[string](p, "Greet", "y")
	require.NoError(t, err)
	assert.Equal(t, "zero:y", got)
	assert.Equal(t, 1, h.Defaults().Cached())
}
