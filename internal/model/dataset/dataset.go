// Package dataset holds the canonical tabular structure shared by the
// loader, the session store and the execution sandbox.
package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind categorizes a column. Classification happens once at load time and is
// carried with the column from then on.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindTextual  Kind = "textual"
	KindTemporal Kind = "temporal"
	KindMixed    Kind = "mixed"
)

// Column stores one named column. Cell types follow the kind: float64 for
// numeric, string for textual and mixed, time.Time for temporal. Missing
// cells are nil regardless of kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Dataset is an immutable columnar table. All columns have equal length.
type Dataset struct {
	Columns []Column
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Numeric returns the non-null numeric values of the named column.
func (d *Dataset) Numeric(name string) []float64 {
	col, ok := d.Column(name)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

// Strings returns the non-null values of the named column rendered as text.
func (d *Dataset) Strings(name string) []string {
	col, ok := d.Column(name)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(col.Values))
	for _, v := range col.Values {
		switch cell := v.(type) {
		case nil:
		case string:
			out = append(out, cell)
		case float64:
			out = append(out, formatFloat(cell))
		case time.Time:
			out = append(out, cell.Format(time.RFC3339))
		}
	}
	return out
}

// NumericWhere returns the numeric values of valueCol for rows whose
// filterCol cell equals the given text. Useful for comparing subgroups.
func (d *Dataset) NumericWhere(valueCol, filterCol, equals string) []float64 {
	values, okV := d.Column(valueCol)
	filter, okF := d.Column(filterCol)
	if !okV || !okF {
		return nil
	}
	var out []float64
	for i, v := range values.Values {
		f, ok := v.(float64)
		if !ok || i >= len(filter.Values) {
			continue
		}
		if s, ok := filter.Values[i].(string); ok && s == equals {
			out = append(out, f)
		}
	}
	return out
}

// Describe renders the dataset summary used both for display and as prompt
// context for the completion service. Columns that are empty after null
// removal are omitted.
func (d *Dataset) Describe() string {
	var lines []string
	for _, col := range d.Columns {
		desc, ok := describeColumn(col)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", col.Name, desc))
	}

	header := fmt.Sprintf("The dataset df has %d rows and %d columns:", d.RowCount(), d.ColumnCount())
	return header + "\n" + strings.Join(lines, "\n")
}

func describeColumn(col Column) (string, bool) {
	nonNull := 0
	for _, v := range col.Values {
		if v != nil {
			nonNull++
		}
	}
	if nonNull == 0 {
		return "", false
	}

	switch col.Kind {
	case KindNumeric:
		return describeNumeric(col), true
	case KindTextual:
		return describeTextual(col), true
	case KindTemporal:
		return describeTemporal(col), true
	default:
		return fmt.Sprintf("mixed type with %d unique values", uniqueCount(col)), true
	}
}

func describeNumeric(col Column) string {
	var sum, min, max float64
	n := 0
	for _, v := range col.Values {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		if n == 0 || f < min {
			min = f
		}
		if n == 0 || f > max {
			max = f
		}
		sum += f
		n++
	}
	return fmt.Sprintf("numeric. mean: %.2f min: %.2f max: %.2f", sum/float64(n), min, max)
}

func describeTextual(col Column) string {
	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}

	// Top three by frequency; first occurrence breaks ties for determinism.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	top := order
	if len(top) > 3 {
		top = top[:3]
	}
	examples := make([]string, 0, len(top))
	for _, s := range top {
		examples = append(examples, fmt.Sprintf("%s (%d)", s, counts[s]))
	}

	return fmt.Sprintf("string. %d unique values. E.g. %s", len(order), strings.Join(examples, ", "))
}

func describeTemporal(col Column) string {
	var min, max time.Time
	first := true
	for _, v := range col.Values {
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		if first || t.Before(min) {
			min = t
		}
		if first || t.After(max) {
			max = t
		}
		first = false
	}
	return fmt.Sprintf("date. min: %s max: %s", min.Format(time.RFC3339), max.Format(time.RFC3339))
}

func uniqueCount(col Column) int {
	seen := make(map[string]struct{})
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		seen[fmt.Sprint(v)] = struct{}{}
	}
	return len(seen)
}

func formatFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
}
