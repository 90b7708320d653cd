// ABOUTME: Normalize turns a loosely-structured visualization payload into typed chart records.
// ABOUTME: It never fails: malformed or mismatched payloads yield an empty record set.
package chart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// maxUnwrap bounds how many times a JSON string holding JSON is unwrapped.
const maxUnwrap = 2

// Normalize extracts records for family from spec.
//
// spec may be a JSON string, []byte, json.RawMessage, gjson.Result, nil, or any
// value encoding/json can marshal. Go maps marshal with sorted keys, so callers
// that care about column order should pass JSON text.
//
// For categorical and point families the first array of row objects found
// depth-first in document order is the data. The first key of its first row
// is the label (or x) column and the second key is the value (or y) column.
// Reordering the row's keys changes which columns are plotted.
//
// For the table family spec must be an object with a "columns" array of
// strings and a "data" array. Object rows are kept as-is; array rows are
// zipped against the columns.
//
// Values that cannot be read as numbers become NaN and are kept.
func Normalize(spec any, family Family) []Record {
	root, ok := parse(spec)
	if !ok {
		return []Record{}
	}
	switch family.Kind() {
	case KindCategorical:
		return categorical(root)
	case KindPoint:
		return points(root)
	case KindTable:
		return table(root)
	default:
		return []Record{}
	}
}

// DetectFamily reads the family a payload declares for itself through a
// chart_type, chartType, type or mark field. Payloads that declare nothing
// but carry columns with data are tables.
func DetectFamily(spec any) (Family, bool) {
	root, ok := parse(spec)
	if !ok || !root.IsObject() {
		return "", false
	}
	for _, key := range []string{"chart_type", "chartType", "type", "mark"} {
		v := field(root, key)
		if v.IsObject() {
			v = field(v, "type")
		}
		if v.Type != gjson.String {
			continue
		}
		if f, ok := ParseFamily(v.Str); ok {
			return f, true
		}
	}
	if field(root, "columns").IsArray() && field(root, "data").IsArray() {
		return FamilyTable, true
	}
	return "", false
}

// parse accepts every supported input form and returns the JSON document,
// unwrapping strings that themselves hold JSON.
func parse(spec any) (gjson.Result, bool) {
	var raw []byte
	switch v := spec.(type) {
	case nil:
		return gjson.Result{}, false
	case gjson.Result:
		raw = []byte(v.Raw)
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return gjson.Result{}, false
		}
		raw = b
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(raw)
	for i := 0; i < maxUnwrap && root.Type == gjson.String; i++ {
		if !gjson.Valid(root.Str) {
			return gjson.Result{}, false
		}
		root = gjson.Parse(root.Str)
	}
	if !root.IsObject() && !root.IsArray() {
		return gjson.Result{}, false
	}
	return root, true
}

// findRows returns the first array whose first element is an object,
// searching depth-first in document order.
func findRows(v gjson.Result) (gjson.Result, bool) {
	if v.IsArray() {
		if elems := v.Array(); len(elems) > 0 && elems[0].IsObject() {
			return v, true
		}
	}
	if !v.IsArray() && !v.IsObject() {
		return gjson.Result{}, false
	}
	var found gjson.Result
	var ok bool
	v.ForEach(func(_, child gjson.Result) bool {
		found, ok = findRows(child)
		return !ok
	})
	return found, ok
}

// leadingKeys returns the first two keys of obj in document order.
func leadingKeys(obj gjson.Result) (string, string, bool) {
	var keys []string
	obj.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return len(keys) < 2
	})
	if len(keys) < 2 {
		return "", "", false
	}
	return keys[0], keys[1], true
}

// pairs walks the row array and calls fn with each object row's values
// under the first two keys of the first row.
func pairs(root gjson.Result, fn func(a, b gjson.Result)) bool {
	rows, ok := findRows(root)
	if !ok {
		return false
	}
	elems := rows.Array()
	first, second, ok := leadingKeys(elems[0])
	if !ok {
		return false
	}
	for _, row := range elems {
		if !row.IsObject() {
			continue
		}
		fn(field(row, first), field(row, second))
	}
	return true
}

func categorical(root gjson.Result) []Record {
	out := []Record{}
	pairs(root, func(label, value gjson.Result) {
		out = append(out, CategoricalRecord{Label: text(label), Value: numeric(value)})
	})
	return out
}

func points(root gjson.Result) []Record {
	out := []Record{}
	pairs(root, func(x, y gjson.Result) {
		out = append(out, PointRecord{X: numeric(x), Y: numeric(y)})
	})
	return out
}

func table(root gjson.Result) []Record {
	if !root.IsObject() {
		return []Record{}
	}
	cols, data := field(root, "columns"), field(root, "data")
	if !cols.IsArray() || !data.IsArray() {
		return []Record{}
	}
	var columns []string
	for _, c := range cols.Array() {
		if c.Type != gjson.String {
			return []Record{}
		}
		columns = append(columns, c.Str)
	}
	rows := []map[string]any{}
	for _, row := range data.Array() {
		switch {
		case row.IsObject():
			if m, ok := row.Value().(map[string]any); ok {
				rows = append(rows, m)
			}
		case row.IsArray():
			cells := row.Array()
			m := make(map[string]any, len(columns))
			for i, col := range columns {
				if i < len(cells) {
					m[col] = cells[i].Value()
				}
			}
			rows = append(rows, m)
		}
	}
	if columns == nil {
		columns = []string{}
	}
	return []Record{TableRecord{Columns: columns, Rows: rows}}
}

// field looks up a literal key without gjson path syntax, so keys holding
// dots or wildcards match as written.
func field(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number, gjson.True, gjson.False:
		return r.Raw
	default:
		return ""
	}
}

// numeric coerces a JSON value to a number: numbers as-is, numeric strings
// parsed, booleans as 1 or 0, everything else NaN.
func numeric(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		s = strings.ReplaceAll(s, ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return math.NaN()
	case gjson.True:
		return 1
	case gjson.False:
		return 0
	default:
		return math.NaN()
	}
}
