package loader

import (
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
)

// fromSQLite loads the first table in catalog order and ignores the rest.
// That mirrors the long-standing behavior callers depend on; it is a
// documented quirk, not configurable.
func (l *Loader) fromSQLite(filePath string) (*dataset.Dataset, error) {
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to open database %s", filePath)
	}
	defer db.Close()

	var table string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY rowid LIMIT 1`).Scan(&table)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindBadInput, "no tables found in database")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to read table catalog of %s", filePath)
	}

	rows, err := db.Query(`SELECT * FROM ` + quoteIdentifier(table))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to read table %q", table)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to read columns of table %q", table)
	}

	cells := make([][]any, len(names))
	for rows.Next() {
		scan := make([]any, len(names))
		for i := range scan {
			scan[i] = new(any)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to scan row of table %q", table)
		}
		for i, v := range scan {
			cells[i] = append(cells[i], convertSQLiteValue(*(v.(*any))))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "error reading table %q", table)
	}

	columns := make([]dataset.Column, 0, len(names))
	for i, name := range names {
		columns = append(columns, buildColumn(name, cells[i]))
	}

	l.logger.Info("loaded sqlite table", zap.String("table", table), zap.Int("rows", len(cells[0])))
	return &dataset.Dataset{Columns: columns}, nil
}

// convertSQLiteValue normalizes a driver value into a dataset cell. Text
// cells that parse as timestamps become temporal, matching csv inference.
func convertSQLiteValue(v any) any {
	switch cell := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(cell)
	case float64:
		return cell
	case bool:
		if cell {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return convertSQLiteText(string(cell))
	case string:
		return convertSQLiteText(cell)
	case time.Time:
		return cell
	default:
		return nil
	}
}

// convertSQLiteText keeps text as text. Numeric affinity is already applied
// by the engine, so only timestamp detection is attempted here.
func convertSQLiteText(s string) any {
	if s == "" {
		return nil
	}
	if t, ok := parseTime(s); ok {
		return t
	}
	return s
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
