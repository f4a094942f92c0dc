// Package loader ingests tabular datasets from local paths or remote URLs
// and normalizes them into the canonical columnar structure.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
)

const maxErrorBody = 8 << 10

var sqliteExtensions = map[string]bool{
	".sqlite":  true,
	".sqlite3": true,
	".db":      true,
	".s3db":    true,
	".sl3":     true,
}

const supportedFormats = ".csv, .sqlite, .sqlite3, .db, .s3db, .sl3"

// Loader dispatches on origin and format.
type Loader struct {
	client *http.Client
	logger *zap.Logger
}

// New returns a loader with a default HTTP client for remote fetches.
func New(logger *zap.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Load ingests the dataset named by source, which is either a local file
// path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (*dataset.Dataset, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, apperr.New(apperr.KindBadInput, "source is required")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fromURL(ctx, source)
	}
	return l.FromPath(source)
}

// fromURL downloads the payload to a staging file whose extension is taken
// from the URL's trailing suffix, decodes it through the local-file path and
// removes the staging file unconditionally.
func (l *Loader) fromURL(ctx context.Context, rawURL string) (*dataset.Dataset, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to build request for %q", rawURL)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "failed to download %q", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperr.Upstream(resp.StatusCode, string(body), "failed to download %q", rawURL)
	}

	staging, err := os.CreateTemp("", "hypoforge-download-*"+path.Ext(u.Path))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermissionDenied, err, "failed to create staging file")
	}
	defer os.Remove(staging.Name())

	if _, err := io.Copy(staging, resp.Body); err != nil {
		staging.Close()
		return nil, apperr.Wrap(apperr.KindUpstream, err, "failed to read payload from %q", rawURL)
	}
	if err := staging.Close(); err != nil {
		return nil, apperr.Wrap(apperr.KindPermissionDenied, err, "failed to write staging file")
	}

	l.logger.Info("downloaded dataset", zap.String("url", rawURL))
	return l.FromPath(staging.Name())
}

// FromPath decodes a local file based on its extension.
func (l *Loader) FromPath(filePath string) (*dataset.Dataset, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.New(apperr.KindNotFound, "file not found: %s", filePath)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, apperr.Wrap(apperr.KindPermissionDenied, err, "permission denied accessing file: %s", filePath)
		}
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to stat %s", filePath)
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.New(apperr.KindBadInput, "path is not a file: %s", filePath)
	}

	ext := strings.ToLower(path.Ext(filePath))
	switch {
	case ext == ".csv":
		return l.fromCSV(filePath)
	case sqliteExtensions[ext]:
		return l.fromSQLite(filePath)
	default:
		return nil, apperr.New(apperr.KindBadInput, "unsupported file format %q. Supported: %s", ext, supportedFormats)
	}
}

func (l *Loader) fromCSV(filePath string) (*dataset.Dataset, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, apperr.Wrap(apperr.KindPermissionDenied, err, "permission denied accessing file: %s", filePath)
		}
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to open %s", filePath)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "error parsing file")
	}
	if len(records) == 0 {
		return nil, apperr.New(apperr.KindBadInput, "the file is empty or contains no valid data")
	}

	header := records[0]
	rows := records[1:]
	columns := make([]dataset.Column, 0, len(header))
	for colIdx, name := range header {
		cells := make([]any, len(rows))
		for rowIdx, row := range rows {
			if colIdx < len(row) {
				cells[rowIdx] = parseCell(row[colIdx])
			}
		}
		columns = append(columns, buildColumn(name, cells))
	}

	return &dataset.Dataset{Columns: columns}, nil
}

// parseCell infers the type of one raw text cell.
func parseCell(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if t, ok := parseTime(raw); ok {
		return t
	}
	return raw
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildColumn classifies a column from its inferred cells. A column whose
// non-null cells disagree on type degrades to mixed, stored as raw text.
func buildColumn(name string, cells []any) dataset.Column {
	var numeric, textual, temporal int
	for _, cell := range cells {
		switch cell.(type) {
		case float64:
			numeric++
		case string:
			textual++
		case time.Time:
			temporal++
		}
	}

	nonNull := numeric + textual + temporal
	kind := dataset.KindTextual
	switch {
	case nonNull == 0:
		// Fully null column; kind is arbitrary since the description omits it.
	case numeric == nonNull:
		kind = dataset.KindNumeric
	case temporal == nonNull:
		kind = dataset.KindTemporal
	case textual == nonNull:
		kind = dataset.KindTextual
	default:
		kind = dataset.KindMixed
		for i, cell := range cells {
			switch v := cell.(type) {
			case float64:
				cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
			case time.Time:
				cells[i] = v.Format(time.RFC3339)
			}
		}
	}

	return dataset.Column{Name: name, Kind: kind, Values: cells}
}
