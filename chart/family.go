// ABOUTME: Chart families and the record shape each one extracts.
// ABOUTME: ParseFamily accepts the spellings chart payloads and callers use for each family.
package chart

import "strings"

// Family names a chart type requested by the caller.
type Family string

const (
	FamilyBar     Family = "bar"
	FamilyLine    Family = "line"
	FamilyArea    Family = "area"
	FamilyPie     Family = "pie"
	FamilyScatter Family = "scatter"
	FamilyTable   Family = "table"
)

// Kind is the record shape a family extracts.
type Kind int

const (
	KindUnknown     Kind = iota
	KindCategorical      // label/value pairs
	KindPoint            // x/y pairs
	KindTable            // columns with rows
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindPoint:
		return "point"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

var familyWords = map[string]Family{
	"bar":        FamilyBar,
	"bars":       FamilyBar,
	"bar_chart":  FamilyBar,
	"column":     FamilyBar,
	"histogram":  FamilyBar,
	"line":       FamilyLine,
	"line_chart": FamilyLine,
	"area":       FamilyArea,
	"pie":        FamilyPie,
	"pie_chart":  FamilyPie,
	"donut":      FamilyPie,
	"doughnut":   FamilyPie,
	"arc":        FamilyPie,
	"scatter":    FamilyScatter,
	"point":      FamilyScatter,
	"points":     FamilyScatter,
	"bubble":     FamilyScatter,
	"table":      FamilyTable,
	"grid":       FamilyTable,
}

// ParseFamily maps a family name to a Family. Matching ignores case and
// surrounding whitespace.
func ParseFamily(s string) (Family, bool) {
	f, ok := familyWords[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Families returns every family in display order.
func Families() []Family {
	return []Family{FamilyBar, FamilyLine, FamilyArea, FamilyPie, FamilyScatter, FamilyTable}
}

// Kind returns the record shape the family extracts.
func (f Family) Kind() Kind {
	switch f {
	case FamilyBar, FamilyLine, FamilyArea, FamilyPie:
		return KindCategorical
	case FamilyScatter:
		return KindPoint
	case FamilyTable:
		return KindTable
	default:
		return KindUnknown
	}
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f.Kind() != KindUnknown
}
