// Package demo runs a small scenario showing tagged, prioritized and
// sticky dispatch on a Hub.
package demo

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kilianp07/streamhub/core/stream"
	"github.com/kilianp07/streamhub/infra/logger"
)

var log = logger.New("demo")

// Display receives temperature readings for the zone it reports as tag.
type Display interface {
	stream.Stream
	Show(zone string, celsius float64)
	Summary() string
}

// Panel is a Display bound to one zone.
type Panel struct {
	Name string
	Zone string
	out  io.Writer

	mu    sync.Mutex
	shown []float64
}

// NewPanel creates a panel writing every reading to out.
func NewPanel(name, zone string, out io.Writer) *Panel {
	return &Panel{Name: name, Zone: zone, out: out}
}

func (p *Panel) TagForStream(stream.Interface) any { return p.Zone }

func (p *Panel) Show(zone string, celsius float64) {
	p.mu.Lock()
	p.shown = append(p.shown, celsius)
	p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: %s %.1f°C\n", p.Name, zone, celsius)
}

func (p *Panel) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%s=%d", p.Name, len(p.shown))
}

// Shown returns the readings displayed so far.
func (p *Panel) Shown() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.shown...)
}

// Output is where fallback displays write. It is a package variable
// because fallback displays are built without arguments.
var Output io.Writer = io.Discard

type offlineDisplay struct {
	dropped int
}

func (*offlineDisplay) TagForStream(stream.Interface) any { return nil }

func (d *offlineDisplay) Show(zone string, celsius float64) {
	d.dropped++
	fmt.Fprintf(Output, "offline: %s %.1f°C not displayed\n", zone, celsius)
}

func (d *offlineDisplay) Summary() string { return "offline" }

type displayProxy struct{ *stream.Proxy }

func (p displayProxy) Show(zone string, celsius float64) {
	if _, err := p.Invoke("Show", zone, celsius); err != nil {
		log.Errorf("show %s: %v", zone, err)
	}
}

func (p displayProxy) Summary() string {
	s, err := stream.Call[string](p.Proxy, "Summary")
	if err != nil {
		log.Errorf("summary: %v", err)
	}
	return s
}

// Notifier acknowledges alerts with its name.
type Notifier interface {
	stream.Stream
	Notify(msg string) string
}

// Pager is a Notifier that can stop the alert from reaching lower
// priority pagers.
type Pager struct {
	Name string
	// Exclusive messages are not forwarded past this pager.
	Exclusive string

	conn     *stream.Connection
	notified []string
}

func (*Pager) TagForStream(stream.Interface) any { return nil }

func (p *Pager) Notify(msg string) string {
	p.notified = append(p.notified, msg)
	if msg == p.Exclusive && p.conn != nil {
		_ = p.conn.BreakDispatch(stream.InterfaceOf[Notifier]())
	}
	return p.Name
}

// Notified returns the messages received by p.
func (p *Pager) Notified() []string { return p.notified }

// Result holds the streams created by Run.
type Result struct {
	Panels  []*Panel
	Pagers  []*Pager
	Summary string
	// Acks holds the reduced results of the two alerts.
	Acks []string
}

// Run plays the scenario on h and writes its narration to out.
func Run(h *stream.Hub, out io.Writer) (*Result, error) {
	Output = out
	iface := stream.InterfaceOf[Display]()
	if err := h.Declare(iface); err != nil {
		return nil, err
	}
	if err := stream.RegisterDefault[offlineDisplay](h.Defaults()); err != nil {
		return nil, err
	}

	sticky, err := h.NewProxy(iface, stream.WithTag("kitchen"), stream.WithSticky())
	if err != nil {
		return nil, err
	}
	defer sticky.Close()
	kitchen := displayProxy{sticky}

	fmt.Fprintln(out, "# reading before any panel is online")
	kitchen.Show("kitchen", 21.5)

	main := NewPanel("kitchen-main", "kitchen", out)
	aux := NewPanel("kitchen-aux", "kitchen", out)
	lounge := NewPanel("lounge", "lounge", out)
	fmt.Fprintln(out, "# panels join and replay the last reading")
	for _, p := range []*Panel{aux, main, lounge} {
		conn, err := h.Register(p)
		if err != nil {
			return nil, err
		}
		if p == main {
			if err := conn.SetPriority(1); err != nil {
				return nil, err
			}
		}
		if _, err := conn.Replay(); err != nil {
			return nil, err
		}
	}

	fmt.Fprintln(out, "# new reading, highest priority first")
	kitchen.Show("kitchen", 22.0)

	all, err := h.NewProxy(iface, stream.WithTag("kitchen"), stream.WithResultFilter(stream.ResultFilterFunc(
		func(_ string, _ []any, results []any) any {
			parts := make([]string, len(results))
			for i, r := range results {
				parts[i] = fmt.Sprint(r)
			}
			return strings.Join(parts, ",")
		})))
	if err != nil {
		return nil, err
	}
	defer all.Close()
	summary := displayProxy{all}.Summary()
	fmt.Fprintf(out, "# summary %s\n", summary)

	pagers, acks, err := alert(h, out)
	if err != nil {
		return nil, err
	}
	return &Result{Panels: []*Panel{main, aux, lounge}, Pagers: pagers, Summary: summary, Acks: acks}, nil
}

func alert(h *stream.Hub, out io.Writer) ([]*Pager, []string, error) {
	iface := stream.InterfaceOf[Notifier]()
	if err := h.Declare(iface); err != nil {
		return nil, nil, err
	}
	oncall := &Pager{Name: "oncall"}
	backup := &Pager{Name: "backup"}
	lead := &Pager{Name: "lead", Exclusive: "escalate"}
	for _, r := range []struct {
		p        *Pager
		priority int
	}{{oncall, 0}, {backup, -1}, {lead, 1}} {
		conn, err := h.Register(r.p)
		if err != nil {
			return nil, nil, err
		}
		if err := conn.SetPriority(r.priority); err != nil {
			return nil, nil, err
		}
		r.p.conn = conn
	}

	p, err := h.NewProxy(iface, stream.WithResultFilter(stream.LastResult))
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	var acks []string
	for _, msg := range []string{"disk full", "escalate"} {
		ack, err := stream.Call[string](p, "Notify", msg)
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(out, "# alert %q acknowledged by %s\n", msg, ack)
		acks = append(acks, ack)
	}
	return []*Pager{lead, oncall, backup}, acks, nil
}
