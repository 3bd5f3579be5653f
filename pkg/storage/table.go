package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"hirafetch/pkg/models"
)

// utf8BOM lets spreadsheet programs detect UTF-8 in CSV files
const utf8BOM = "\xEF\xBB\xBF"

// SheetName is the worksheet written to and read from XLSX files
const SheetName = "Sheet1"

// Columns orders the columns of records: priority columns that occur in any
// record come first, then every other key in the order it is first seen.
// Keys within one record are visited in sorted order so output is stable.
func Columns(records []models.Record, priority []string) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}

	columns := make([]string, 0, len(seen))
	placed := make(map[string]bool, len(seen))
	for _, col := range priority {
		if seen[col] && !placed[col] {
			columns = append(columns, col)
			placed[col] = true
		}
	}

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if !placed[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			columns = append(columns, k)
			placed[k] = true
		}
	}

	return columns
}

// WriteRecords writes records as a table. Paths ending in .xlsx produce a
// workbook; anything else is written as UTF-8 CSV with a byte order mark.
func WriteRecords(path string, records []models.Record, priority []string) error {
	columns := Columns(records, priority)
	if strings.EqualFold(filepath.Ext(path), "."+FormatXLSX) {
		return writeAtomic(path, func(w io.Writer) error {
			return writeXLSX(w, columns, records)
		})
	}
	return writeAtomic(path, func(w io.Writer) error {
		return writeCSV(w, columns, records)
	})
}

func writeCSV(w io.Writer, columns []string, records []models.Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = cellText(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, columns []string, records []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, rec := range records {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = cellValue(rec[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// cellText renders a value for CSV. Nested values are JSON-encoded.
func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}, []interface{}, models.Record, []models.Record:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// cellValue keeps numbers numeric in workbooks; everything else is text
func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int, int64, float64, bool:
		return t
	default:
		return cellText(t)
	}
}
