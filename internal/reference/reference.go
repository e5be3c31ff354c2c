// Package reference implements the static reference table mapping classifier
// labels to registered external identities. The table is loaded once from a
// CSV source and held read-only; reloads swap the whole table at once.
package reference

import (
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/logging"
)

// Required source columns. Absence of any is a fatal load error.
const (
	ColumnID    = "12_digit_id"
	ColumnName  = "cattle_name"
	ColumnLabel = "class"
)

// Row is one entry of the reference table.
type Row struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Label      string `json:"label"`
}

// Table is an immutable label indexed view of the reference source.
type Table struct {
	rows    []Row
	byLabel map[string][]int

	// Fallbacks counts identifiers kept as-is because normalization could
	// not produce a plain integer rendering.
	Fallbacks int
}

var (
	refLogger     *slog.Logger
	refLoggerOnce sync.Once
)

func getLogger() *slog.Logger {
	refLoggerOnce.Do(func() {
		refLogger = logging.ForService("reference")
	})
	return refLogger
}

// Load builds a table from a CSV stream. The first record is the header.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Newf("reading reference header: %w", err).
			Component("reference").
			Category(errors.CategoryReferenceLoad).
			Build()
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnID, ColumnName, ColumnLabel} {
		if _, ok := columns[required]; !ok {
			return nil, errors.Newf("reference source missing required column %q", required).
				Component("reference").
				Category(errors.CategoryReferenceLoad).
				Context("column", required).
				Build()
		}
	}

	table := &Table{byLabel: make(map[string][]int)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Newf("reading reference row: %w", err).
				Component("reference").
				Category(errors.CategoryReferenceLoad).
				Context("row", len(table.rows)+1).
				Build()
		}

		id, normalized := NormalizeID(record[columns[ColumnID]])
		if !normalized {
			table.Fallbacks++
		}
		row := Row{
			ExternalID: id,
			Name:       strings.TrimSpace(record[columns[ColumnName]]),
			Label:      strings.TrimSpace(record[columns[ColumnLabel]]),
		}
		table.byLabel[row.Label] = append(table.byLabel[row.Label], len(table.rows))
		table.rows = append(table.rows, row)
	}

	getLogger().Debug("reference table loaded", "rows", len(table.rows), "fallbacks", table.Fallbacks)
	return table, nil
}

// LoadFile builds a table from a CSV file on disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Newf("opening reference source: %w", err).
			Component("reference").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns all rows in source order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// LookupByLabel returns all rows filed under label, in source order.
// The result may be empty; that is not an error.
func (t *Table) LookupByLabel(label string) []Row {
	indexes := t.byLabel[label]
	if len(indexes) == 0 {
		return nil
	}
	rows := make([]Row, 0, len(indexes))
	for _, i := range indexes {
		rows = append(rows, t.rows[i])
	}
	return rows
}

// NormalizeID cleans spreadsheet corrupted identifiers: a trailing ".0"
// suffix and thousands separator commas are stripped, then the remainder is
// parsed as a float and re-rendered as a plain integer string. This corrects
// scientific notation damage such as "7.78268E+11" -> "778268000000". When
// the value does not parse, or is not integral, the cleaned string is kept
// unchanged. The second return reports whether an integer rendering was
// produced.
func NormalizeID(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, ".0")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return cleaned, false
	}
	if value != math.Trunc(value) || math.IsInf(value, 0) || math.IsNaN(value) {
		return cleaned, false
	}
	return strconv.FormatFloat(value, 'f', -1, 64), true
}
