package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/streamhub/core/metrics"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(b)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) lines() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordDispatch(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.DispatchRecord{
		ID:         "id-1",
		Interface:  "app.Greeter",
		Method:     "Greet",
		Tag:        "eu",
		Candidates: 3,
		Invoked:    2,
		Broken:     true,
		Duration:   1500 * time.Microsecond,
		Time:       now,
	}
	if err := sink.RecordDispatch(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("stream_dispatch").
		AddTag("interface", "app.Greeter").
		AddTag("method", "Greet").
		AddTag("fallback", "false").
		AddTag("failed", "false").
		AddTag("tag", "eu").
		AddField("dispatch_id", "id-1").
		AddField("candidates", 3).
		AddField("invoked", 2).
		AddField("broken", true).
		AddField("sticky", false).
		AddField("duration_us", int64(1500)).
		SetTime(now)
	if got := ls.lines(); len(got) != 1 || got[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordRegistration(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RegistrationEvent{Stream: "s", Interfaces: []string{"a.A", "a.B"}, Time: now}
	if err := sink.RecordRegistration(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := ls.lines()
	if len(got) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(got))
	}
	p := write.NewPointWithMeasurement("stream_registration").
		AddTag("interface", "a.B").
		AddField("stream", "s").
		AddField("delta", -1).
		SetTime(now)
	if got[1] != line(p) {
		t.Errorf("unexpected body: %s", got[1])
	}
}

func TestInfluxSink_Recorders(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordPriority(coremetrics.PriorityEvent{Stream: "s", Interface: "a.A", Priority: -1, Time: now}); err != nil {
		t.Fatalf("priority: %v", err)
	}
	if err := sink.RecordFallback(coremetrics.FallbackEvent{Interface: "a.A", Implementation: "*a.def", Time: now}); err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if err := sink.RecordStickyReplay(coremetrics.StickyEvent{Stream: "s", Interface: "a.A", Calls: 2, Time: now}); err != nil {
		t.Fatalf("sticky: %v", err)
	}
	want := []string{
		line(write.NewPointWithMeasurement("stream_priority").AddTag("interface", "a.A").
			AddField("stream", "s").AddField("priority", -1).SetTime(now)),
		line(write.NewPointWithMeasurement("stream_fallback").AddTag("interface", "a.A").
			AddField("implementation", "*a.def").SetTime(now)),
		line(write.NewPointWithMeasurement("stream_sticky_replay").AddTag("interface", "a.A").
			AddField("stream", "s").AddField("calls", 2).SetTime(now)),
	}
	got := ls.lines()
	if len(got) != len(want) {
		t.Fatalf("bodies: %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("body %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{
		URL:    srv.URL + "/api/v2/write",
		Token:  "tok",
		Org:    "org",
		Bucket: "bucket",
	})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
