package dataset

import (
	"math"
	"time"

	"github.com/bytedance/sonic"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
)

// Snapshot encoding: a self-describing columnar document that preserves the
// per-column kind across a write/read cycle. Temporal cells are stored as
// RFC 3339 strings; non-finite numerics degrade to null.

type snapshotColumn struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Values []any  `json:"values"`
}

type snapshotDoc struct {
	Rows    int              `json:"rows"`
	Columns []snapshotColumn `json:"columns"`
}

// EncodeSnapshot serializes the dataset.
func EncodeSnapshot(d *Dataset) ([]byte, error) {
	doc := snapshotDoc{Rows: d.RowCount(), Columns: make([]snapshotColumn, 0, len(d.Columns))}
	for _, col := range d.Columns {
		values := make([]any, len(col.Values))
		for i, v := range col.Values {
			switch cell := v.(type) {
			case time.Time:
				values[i] = cell.Format(time.RFC3339Nano)
			case float64:
				if math.IsNaN(cell) || math.IsInf(cell, 0) {
					values[i] = nil
				} else {
					values[i] = cell
				}
			default:
				values[i] = v
			}
		}
		doc.Columns = append(doc.Columns, snapshotColumn{Name: col.Name, Kind: col.Kind, Values: values})
	}

	raw, err := sonic.ConfigStd.Marshal(doc)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to encode snapshot")
	}
	return raw, nil
}

// DecodeSnapshot restores a dataset from its snapshot encoding.
func DecodeSnapshot(raw []byte) (*Dataset, error) {
	var doc snapshotDoc
	if err := sonic.ConfigStd.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to decode snapshot")
	}

	ds := &Dataset{Columns: make([]Column, 0, len(doc.Columns))}
	for _, col := range doc.Columns {
		values := make([]any, len(col.Values))
		for i, v := range col.Values {
			cell, err := decodeCell(col.Kind, v)
			if err != nil {
				return nil, err
			}
			values[i] = cell
		}
		ds.Columns = append(ds.Columns, Column{Name: col.Name, Kind: col.Kind, Values: values})
	}
	return ds, nil
}

func decodeCell(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch kind {
	case KindNumeric:
		f, ok := v.(float64)
		if !ok {
			return nil, apperr.New(apperr.KindBadInput, "snapshot cell %v is not numeric", v)
		}
		return f, nil
	case KindTemporal:
		s, ok := v.(string)
		if !ok {
			return nil, apperr.New(apperr.KindBadInput, "snapshot cell %v is not a timestamp", v)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBadInput, err, "invalid snapshot timestamp %q", s)
		}
		return t, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, apperr.New(apperr.KindBadInput, "snapshot cell %v is not textual", v)
		}
		return s, nil
	}
}
