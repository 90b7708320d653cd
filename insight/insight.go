// ABOUTME: Summarize computes trivial aggregate statistics over normalized chart records.
// ABOUTME: Pure and deterministic; NaN values are excluded from extrema and averages.
package insight

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/2389-research/tusk/chart"
)

// Summary is a computed insight that can describe itself as text lines.
type Summary interface {
	Describe() []string
}

// CategoricalSummary reports the top and bottom entries and the mean value.
type CategoricalSummary struct {
	Max     chart.CategoricalRecord `json:"max"`
	Min     chart.CategoricalRecord `json:"min"`
	Average float64                 `json:"average"`
	Count   int                     `json:"count"`
}

// Describe implements Summary.
func (s CategoricalSummary) Describe() []string {
	return []string{
		fmt.Sprintf("Highest: %s (%s)", s.Max.Label, FormatNumber(s.Max.Value)),
		fmt.Sprintf("Lowest: %s (%s)", s.Min.Label, FormatNumber(s.Min.Value)),
		fmt.Sprintf("Average: %s across %d %s", FormatNumber(s.Average), s.Count, plural(s.Count, "entry", "entries")),
	}
}

// PointSummary reports the x range and mean and the y mean.
type PointSummary struct {
	XMin     float64 `json:"x_min"`
	XMax     float64 `json:"x_max"`
	XAverage float64 `json:"x_average"`
	YAverage float64 `json:"y_average"`
	Count    int     `json:"count"`
}

// Describe implements Summary.
func (s PointSummary) Describe() []string {
	return []string{
		fmt.Sprintf("X range: %s to %s", FormatNumber(s.XMin), FormatNumber(s.XMax)),
		fmt.Sprintf("X average: %s", FormatNumber(s.XAverage)),
		fmt.Sprintf("Y average: %s across %d %s", FormatNumber(s.YAverage), s.Count, plural(s.Count, "point", "points")),
	}
}

// Summarize picks the summary for the kind of the first record. Tables, empty
// input and inputs with no finite values have no summary.
func Summarize(records []chart.Record) (Summary, bool) {
	if len(records) == 0 {
		return nil, false
	}
	switch records[0].Kind() {
	case chart.KindCategorical:
		return SummarizeCategorical(chart.Categorical(records))
	case chart.KindPoint:
		return SummarizePoints(chart.Points(records))
	default:
		return nil, false
	}
}

// SummarizeCategorical sorts finite values descending, stable on ties, and
// reports the first and last entries and the mean.
func SummarizeCategorical(records []chart.CategoricalRecord) (CategoricalSummary, bool) {
	kept := make([]chart.CategoricalRecord, 0, len(records))
	for _, r := range records {
		if finite(r.Value) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return CategoricalSummary{}, false
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Value > kept[j].Value })

	var sum float64
	for _, r := range kept {
		sum += r.Value
	}
	return CategoricalSummary{
		Max:     kept[0],
		Min:     kept[len(kept)-1],
		Average: sum / float64(len(kept)),
		Count:   len(kept),
	}, true
}

// SummarizePoints reports over points whose coordinates are both finite.
func SummarizePoints(points []chart.PointRecord) (PointSummary, bool) {
	var s PointSummary
	var sumX, sumY float64
	for _, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			continue
		}
		if s.Count == 0 || p.X < s.XMin {
			s.XMin = p.X
		}
		if s.Count == 0 || p.X > s.XMax {
			s.XMax = p.X
		}
		sumX += p.X
		sumY += p.Y
		s.Count++
	}
	if s.Count == 0 {
		return PointSummary{}, false
	}
	s.XAverage = sumX / float64(s.Count)
	s.YAverage = sumY / float64(s.Count)
	return s, true
}

// FormatNumber renders whole numbers without decimals and everything else
// with at most two.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "n/a"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', 0, 64)
	default:
		return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
