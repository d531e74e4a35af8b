// Package bench measures dispatch latency of a Hub.
package bench

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/streamhub/core/stream"
)

// Sink is the interface dispatched during a benchmark.
type Sink interface {
	stream.Stream
	Consume(v int) int
}

type sink struct {
	tag   string
	total int
}

func (s *sink) TagForStream(stream.Interface) any { return s.tag }

func (s *sink) Consume(v int) int {
	s.total += v
	return s.total
}

// Options controls a benchmark run.
type Options struct {
	Streams int
	Calls   int
	// Tagged streams get one of Tags distinct tags and the proxy selects
	// the first one. Zero disables tagging.
	Tags int
}

// Report summarizes per-call latencies.
type Report struct {
	Streams int
	Calls   int
	Matched int
	Mean    time.Duration
	StdDev  time.Duration
	P50     time.Duration
	P90     time.Duration
	P99     time.Duration
	Max     time.Duration

	// sorted latencies in nanoseconds
	samples []float64
}

func (r Report) String() string {
	return fmt.Sprintf("streams=%d matched=%d calls=%d mean=%s stddev=%s p50=%s p90=%s p99=%s max=%s",
		r.Streams, r.Matched, r.Calls, r.Mean, r.StdDev, r.P50, r.P90, r.P99, r.Max)
}

// Run registers opts.Streams sinks on h and times opts.Calls dispatches.
func Run(h *stream.Hub, opts Options) (Report, error) {
	if opts.Streams < 0 || opts.Calls <= 0 {
		return Report{}, errors.New("bench: streams must be >= 0 and calls > 0")
	}
	iface := stream.InterfaceOf[Sink]()
	if err := h.Declare(iface); err != nil {
		return Report{}, err
	}

	var proxyOpts []stream.ProxyOption
	matched := opts.Streams
	if opts.Tags > 0 {
		proxyOpts = append(proxyOpts, stream.WithTag("t0"))
		matched = 0
	}
	sinks := make([]*sink, opts.Streams)
	for i := range sinks {
		s := &sink{}
		if opts.Tags > 0 {
			s.tag = "t" + strconv.Itoa(i%opts.Tags)
			if i%opts.Tags == 0 {
				matched++
			}
		}
		if _, err := h.Register(s); err != nil {
			return Report{}, err
		}
		sinks[i] = s
	}
	defer func() {
		for _, s := range sinks {
			h.Unregister(s)
		}
	}()

	p, err := h.NewProxy(iface, proxyOpts...)
	if err != nil {
		return Report{}, err
	}
	defer p.Close()

	samples := make([]float64, opts.Calls)
	for i := range samples {
		start := time.Now()
		if _, err := p.Invoke("Consume", 1); err != nil {
			return Report{}, err
		}
		samples[i] = float64(time.Since(start))
	}
	return summarize(samples, opts.Streams, matched), nil
}

func summarize(samples []float64, streams, matched int) Report {
	slices.Sort(samples)
	mean, std := stat.MeanStdDev(samples, nil)
	q := func(p float64) time.Duration {
		return time.Duration(stat.Quantile(p, stat.Empirical, samples, nil))
	}
	return Report{
		Streams: streams,
		Calls:   len(samples),
		Matched: matched,
		Mean:    time.Duration(mean),
		StdDev:  time.Duration(std),
		P50:     q(0.5),
		P90:     q(0.9),
		P99:     q(0.99),
		Max:     time.Duration(samples[len(samples)-1]),
		samples: samples,
	}
}
