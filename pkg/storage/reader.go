package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"hirafetch/pkg/models"
)

// ReadRows loads a CSV or XLSX table. The first row is the header; each
// following non-blank row becomes a record keyed by header name. An empty
// file yields no header and no rows. CSV files that are not
// valid UTF-8 are decoded as EUC-KR (CP949), the other encoding Korean public
// datasets ship in.
func ReadRows(path string) ([]string, []models.Record, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), "."+FormatXLSX) {
		rows, err = readXLSX(path)
	} else {
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return []string{}, []models.Record{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
	}

	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(models.Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			rec[col] = value
		}
		records = append(records, rec)
	}

	return header, records, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, korean.EUCKR.NewDecoder())
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DetectColumn returns the first candidate present in header. An exact match
// wins over a case-insensitive one.
func DetectColumn(header, candidates []string) (string, bool) {
	for _, c := range candidates {
		for _, h := range header {
			if h == c {
				return h, true
			}
		}
	}
	for _, c := range candidates {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return h, true
			}
		}
	}
	return "", false
}

// DetectKeyColumn finds the institution code column of an input table
func DetectKeyColumn(header []string) (string, error) {
	if col, ok := DetectColumn(header, models.KeyColumnCandidates); ok {
		return col, nil
	}
	return "", fmt.Errorf("no institution code column found (looked for %s)",
		strings.Join(models.KeyColumnCandidates, ", "))
}
