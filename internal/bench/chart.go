package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram splits the latencies of r in bins of equal width and returns
// the lower bound and the number of calls of each bin.
func (r Report) Histogram(bins int) ([]time.Duration, []float64) {
	if len(r.samples) == 0 || bins <= 0 {
		return nil, nil
	}
	lo, hi := r.samples[0], r.samples[len(r.samples)-1]
	dividers := make([]float64, bins+1)
	// the last divider must be above the slowest call
	floats.Span(dividers, lo, hi+1)
	counts := stat.Histogram(nil, dividers, r.samples, nil)
	bounds := make([]time.Duration, bins)
	for i := range bounds {
		bounds[i] = time.Duration(dividers[i])
	}
	return bounds, counts
}

// WriteChart renders the latency histogram of r as an HTML bar chart.
func WriteChart(w io.Writer, r Report, bins int) error {
	bounds, counts := r.Histogram(bins)
	labels := make([]string, len(bounds))
	data := make([]opts.BarData, len(counts))
	for i := range bounds {
		labels[i] = bounds[i].String()
		data[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Dispatch latency",
			Subtitle: fmt.Sprintf("%d streams, %d matched, %d calls", r.Streams, r.Matched, r.Calls),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "latency"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "calls"}),
	)
	bar.SetXAxis(labels).AddSeries("calls", data)
	return bar.Render(w)
}
