// ABOUTME: Normalized chart records: a closed union of categorical, point, and table shapes.
// ABOUTME: Records are built fresh per payload and never mutated; helpers unpack the union by kind.
package chart

import (
	"encoding/json"
	"math"
)

// UnsupportedMessage is shown in place of a chart when a payload yields no records.
const UnsupportedMessage = "Unable to render chart for this data."

// Record is one normalized chart row. The set of implementations is closed.
type Record interface {
	Kind() Kind
	record()
}

// CategoricalRecord is a labelled value for bar, line, area and pie charts.
// Value is NaN when the source value could not be read as a number.
type CategoricalRecord struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// PointRecord is one x/y point for scatter charts. Either coordinate may be NaN.
type PointRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TableRecord is a whole table: its column order and its rows.
type TableRecord struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (CategoricalRecord) Kind() Kind { return KindCategorical }
func (PointRecord) Kind() Kind       { return KindPoint }
func (TableRecord) Kind() Kind       { return KindTable }

func (CategoricalRecord) record() {}
func (PointRecord) record()       {}
func (TableRecord) record()       {}

// MarshalJSON writes NaN values as null since JSON has no NaN.
func (r CategoricalRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string   `json:"label"`
		Value *float64 `json:"value"`
	}{r.Label, finite(r.Value)})
}

// MarshalJSON writes NaN coordinates as null since JSON has no NaN.
func (r PointRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}{finite(r.X), finite(r.Y)})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Categorical returns the categorical records in rs, in order.
func Categorical(rs []Record) []CategoricalRecord {
	var out []CategoricalRecord
	for _, r := range rs {
		if c, ok := r.(CategoricalRecord); ok {
			out = append(out, c)
		}
	}
	return out
}

// Points returns the point records in rs, in order.
func Points(rs []Record) []PointRecord {
	var out []PointRecord
	for _, r := range rs {
		if p, ok := r.(PointRecord); ok {
			out = append(out, p)
		}
	}
	return out
}

// Table returns the first table record in rs.
func Table(rs []Record) (TableRecord, bool) {
	for _, r := range rs {
		if t, ok := r.(TableRecord); ok {
			return t, true
		}
	}
	return TableRecord{}, false
}
