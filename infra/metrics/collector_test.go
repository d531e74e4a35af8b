package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/streamhub/core/events"
	coremetrics "github.com/kilianp07/streamhub/core/metrics"
	"github.com/kilianp07/streamhub/core/stream"
	"github.com/kilianp07/streamhub/internal/eventbus"
)

type Pinger interface {
	stream.Stream
	Ping(n int) int
}

type pinger struct{ tag any }

func (p *pinger) TagForStream(stream.Interface) any { return p.tag }
func (p *pinger) Ping(n int) int                    { return n + 1 }

type memorySink struct {
	mu            sync.Mutex
	dispatches    []coremetrics.DispatchRecord
	registrations []coremetrics.RegistrationEvent
	priorities    []coremetrics.PriorityEvent
}

func (m *memorySink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, rec)
	return nil
}

func (m *memorySink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations = append(m.registrations, ev)
	return nil
}

func (m *memorySink) RecordPriority(ev coremetrics.PriorityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priorities = append(m.priorities, ev)
	return nil
}

func (m *memorySink) counts() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dispatches), len(m.registrations), len(m.priorities)
}

func TestStartEventCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := eventbus.New[events.Event]()
	sink := &memorySink{}
	done := StartEventCollector(ctx, bus, sink)

	hub := stream.New(stream.WithEventBus(bus))
	iface := stream.InterfaceOf[Pinger]()
	require.NoError(t, hub.Declare(iface))
	conn, err := hub.Register(&pinger{})
	require.NoError(t, err)
	require.NoError(t, conn.SetPriority(4))

	p, err := hub.NewProxy(iface)
	require.NoError(t, err)
	got, err := stream.Call[int](p, "Ping", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	require.Eventually(t, func() bool {
		d, r, pr := sink.counts()
		return d == 1 && r == 1 && pr == 1
	}, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	rec := sink.dispatches[0]
	sink.mu.Unlock()
	assert.Equal(t, iface.Name(), rec.Interface)
	assert.Equal(t, "Ping", rec.Method)
	assert.Equal(t, 1, rec.Invoked)
	assert.False(t, rec.Failed)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollectorStopsOnBusClose(t *testing.T) {
	bus := eventbus.New[events.Event]()
	done := StartEventCollector(context.Background(), bus, coremetrics.NopSink{})
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollectorNilInputs(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, nil)
	_, open := <-done
	assert.False(t, open)
}
