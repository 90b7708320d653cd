// ABOUTME: Tests for chart payload normalization across categorical, point, and table families.
// ABOUTME: Covers key-order dependence, string unwrapping, numeric coercion, and malformed input.
package chart

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNormalizeCategoricalFirstKeyIsLabel(t *testing.T) {
	got := Normalize(`[{"region":"West","sales":120},{"region":"East","sales":80}]`, FamilyBar)
	want := []Record{
		CategoricalRecord{Label: "West", Value: 120},
		CategoricalRecord{Label: "East", Value: 80},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCategoricalReorderFlipsMapping(t *testing.T) {
	got := Normalize(`[{"sales":120,"region":"West"}]`, FamilyBar)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	rec := got[0].(CategoricalRecord)
	if rec.Label != "120" {
		t.Errorf("Label = %q, want %q", rec.Label, "120")
	}
	if !math.IsNaN(rec.Value) {
		t.Errorf("Value = %v, want NaN", rec.Value)
	}
}

func TestNormalizeFindsNestedRows(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"vega-lite values", `{"mark":"bar","data":{"values":[{"k":"a","v":1},{"k":"b","v":2}]}}`},
		{"wrapped data", `{"title":"x","data":[{"k":"a","v":1},{"k":"b","v":2}]}`},
		{"skips scalar arrays", `{"labels":["a","b"],"rows":[{"k":"a","v":1},{"k":"b","v":2}]}`},
	}
	want := []Record{
		CategoricalRecord{Label: "a", Value: 1},
		CategoricalRecord{Label: "b", Value: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(want, Normalize(tt.spec, FamilyPie)); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeFirstArrayWins(t *testing.T) {
	spec := `{"a":{"rows":[{"k":"first","v":1}]},"b":[{"k":"second","v":2}]}`
	got := Categorical(Normalize(spec, FamilyLine))
	if len(got) != 1 || got[0].Label != "first" {
		t.Errorf("Normalize = %+v, want the first array in document order", got)
	}
}

func TestNormalizeInputForms(t *testing.T) {
	payload := `[{"x":1,"y":2}]`
	quoted, _ := json.Marshal(payload)
	doubleQuoted, _ := json.Marshal(string(quoted))
	want := []Record{PointRecord{X: 1, Y: 2}}

	inputs := map[string]any{
		"string":         payload,
		"bytes":          []byte(payload),
		"raw message":    json.RawMessage(payload),
		"go value":       []map[string]int{{"x": 1, "y": 2}},
		"string in json": string(quoted),
		"twice wrapped":  string(doubleQuoted),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(want, Normalize(in, FamilyScatter)); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeCoercion(t *testing.T) {
	spec := `[{"k":"num","v":1.5},{"k":"str","v":" 42 "},{"k":"comma","v":"1,200"},{"k":"yes","v":true},{"k":"no","v":false},{"k":"word","v":"n/a"},{"k":"nil","v":null},{"k":"obj","v":{}}]`
	want := []Record{
		CategoricalRecord{Label: "num", Value: 1.5},
		CategoricalRecord{Label: "str", Value: 42},
		CategoricalRecord{Label: "comma", Value: 1200},
		CategoricalRecord{Label: "yes", Value: 1},
		CategoricalRecord{Label: "no", Value: 0},
		CategoricalRecord{Label: "word", Value: math.NaN()},
		CategoricalRecord{Label: "nil", Value: math.NaN()},
		CategoricalRecord{Label: "obj", Value: math.NaN()},
	}
	if diff := cmp.Diff(want, Normalize(spec, FamilyBar), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMissingFieldsInLaterRows(t *testing.T) {
	got := Points(Normalize(`[{"x":1,"y":2},{"x":3},"junk"]`, FamilyScatter))
	want := []PointRecord{{X: 1, Y: 2}, {X: 3, Y: math.NaN()}}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Points mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMalformedIsEmpty(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"not json",
		`{"broken":`,
		`42`,
		`"just a string"`,
		`[]`,
		`{}`,
		`[1,2,3]`,
		`[{"only":1}]`,
		[]byte(nil),
		make(chan int),
	}
	for _, fam := range Families() {
		for _, in := range inputs {
			got := Normalize(in, fam)
			if got == nil || len(got) != 0 {
				t.Errorf("Normalize(%v, %s) = %#v, want empty non-nil", in, fam, got)
			}
		}
	}
}

func TestNormalizeUnknownFamilyIsEmpty(t *testing.T) {
	if got := Normalize(`[{"a":"x","b":1}]`, Family("radar")); len(got) != 0 {
		t.Errorf("Normalize(radar) = %v, want empty", got)
	}
}

func TestNormalizeTable(t *testing.T) {
	got := Normalize(`{"columns":["a","b"],"data":[{"a":1,"b":2}]}`, FamilyTable)
	want := []Record{TableRecord{
		Columns: []string{"a", "b"},
		Rows:    []map[string]any{{"a": 1.0, "b": 2.0}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTableArrayRows(t *testing.T) {
	got := Normalize(`{"columns":["name","n"],"data":[["x",1],["y"],["z",3,"extra"]]}`, FamilyTable)
	want := []Record{TableRecord{
		Columns: []string{"name", "n"},
		Rows: []map[string]any{
			{"name": "x", "n": 1.0},
			{"name": "y"},
			{"name": "z", "n": 3.0},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTableRequiresBothFields(t *testing.T) {
	inputs := []string{
		`{"data":[{"a":1}]}`,
		`{"columns":["a"]}`,
		`{"columns":"a","data":[]}`,
		`{"columns":["a"],"data":{"a":1}}`,
		`{"columns":[1,2],"data":[]}`,
		`[{"columns":["a"],"data":[]}]`,
	}
	for _, in := range inputs {
		if got := Normalize(in, FamilyTable); len(got) != 0 {
			t.Errorf("Normalize(%s) = %v, want empty", in, got)
		}
	}
}

func TestNormalizeKeysWithPathCharacters(t *testing.T) {
	got := Categorical(Normalize(`[{"region.name":"West","sales*":5}]`, FamilyBar))
	want := []CategoricalRecord{{Label: "West", Value: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Categorical mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		spec string
		want Family
		ok   bool
	}{
		{`{"chart_type":"bar","data":[]}`, FamilyBar, true},
		{`{"type":"Scatter"}`, FamilyScatter, true},
		{`{"mark":{"type":"arc"}}`, FamilyPie, true},
		{`{"mark":"line"}`, FamilyLine, true},
		{`{"columns":["a"],"data":[]}`, FamilyTable, true},
		{`{"type":"radar"}`, "", false},
		{`[{"a":1}]`, "", false},
		{`nope`, "", false},
	}
	for _, tt := range tests {
		got, ok := DetectFamily(tt.spec)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectFamily(%s) = %q, %v; want %q, %v", tt.spec, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	spec := `{"data":[{"k":"a","v":"x"},{"k":"b","v":3}]}`
	first := Normalize(spec, FamilyBar)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Normalize(spec, FamilyBar), cmpopts.EquateNaNs()); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}
