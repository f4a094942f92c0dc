package dataset_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
)

func sampleDataset() *dataset.Dataset {
	return &dataset.Dataset{Columns: []dataset.Column{
		{Name: "name", Kind: dataset.KindTextual, Values: []any{"John", "Jane", "Bob", "Alice", "Charlie"}},
		{Name: "age", Kind: dataset.KindNumeric, Values: []any{25.0, 30.0, 35.0, 28.0, 32.0}},
		{Name: "salary", Kind: dataset.KindNumeric, Values: []any{50000.0, 60000.0, 70000.0, 55000.0, 65000.0}},
		{Name: "department", Kind: dataset.KindTextual, Values: []any{"Engineering", "Marketing", "Engineering", "Sales", "Marketing"}},
	}}
}

func TestCounts(t *testing.T) {
	ds := sampleDataset()
	if ds.RowCount() != 5 {
		t.Fatalf("unexpected row count: got %d want 5", ds.RowCount())
	}
	if ds.ColumnCount() != 4 {
		t.Fatalf("unexpected column count: got %d want 4", ds.ColumnCount())
	}
}

func TestNumericWhere(t *testing.T) {
	ds := sampleDataset()
	got := ds.NumericWhere("salary", "department", "Engineering")
	if len(got) != 2 {
		t.Fatalf("unexpected subset size: got %d want 2", len(got))
	}
	if got[0] != 50000 || got[1] != 70000 {
		t.Fatalf("unexpected subset values: %v", got)
	}
}

func TestDescribeOmitsNullColumn(t *testing.T) {
	ds := sampleDataset()
	ds.Columns = append(ds.Columns, dataset.Column{
		Name:   "notes",
		Kind:   dataset.KindTextual,
		Values: []any{nil, nil, nil, nil, nil},
	})

	desc := ds.Describe()
	if strings.Contains(desc, "notes") {
		t.Fatalf("description should omit fully-null column, got:\n%s", desc)
	}
	if !strings.Contains(desc, "5 rows and 5 columns") {
		t.Fatalf("header should still count the null column, got:\n%s", desc)
	}
}

func TestDescribeTextualTopThree(t *testing.T) {
	ds := &dataset.Dataset{Columns: []dataset.Column{
		{Name: "city", Kind: dataset.KindTextual, Values: []any{
			"Oslo", "Oslo", "Oslo", "Bergen", "Bergen", "Trondheim", "Stavanger",
		}},
	}}

	desc := ds.Describe()
	if !strings.Contains(desc, "4 unique values") {
		t.Fatalf("expected unique count 4, got:\n%s", desc)
	}
	if !strings.Contains(desc, "Oslo (3), Bergen (2), Trondheim (1)") {
		t.Fatalf("expected top-3 values with counts, got:\n%s", desc)
	}
	if strings.Contains(desc, "Stavanger") {
		t.Fatalf("fourth value must not appear, got:\n%s", desc)
	}
}

func TestDescribeNumericAndTemporal(t *testing.T) {
	ds := &dataset.Dataset{Columns: []dataset.Column{
		{Name: "score", Kind: dataset.KindNumeric, Values: []any{1.0, 2.0, nil, 3.0}},
		{Name: "joined", Kind: dataset.KindTemporal, Values: []any{
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			nil,
			time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			nil,
		}},
	}}

	desc := ds.Describe()
	if !strings.Contains(desc, "numeric. mean: 2.00 min: 1.00 max: 3.00") {
		t.Fatalf("unexpected numeric description:\n%s", desc)
	}
	if !strings.Contains(desc, "date. min: 2020-01-01") || !strings.Contains(desc, "max: 2023-06-15") {
		t.Fatalf("unexpected temporal description:\n%s", desc)
	}
}
