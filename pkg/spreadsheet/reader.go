// Package spreadsheet reads uploaded CSV and XLSX files into header-keyed rows.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrNoHeader is returned when the file has no header row.
var ErrNoHeader = errors.New("spreadsheet has no header row")

// Row is one data row keyed by slugged header. Number is the 1-based sheet
// row, so the first data row under the header is 2.
type Row struct {
	Number int
	Values map[string]string
}

// Table is the parsed content of the first sheet.
type Table struct {
	Headers []string
	Rows    []Row
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug normalizes a header cell: "Roll No" becomes "roll_no".
func Slug(header string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(header)), "_")
	return strings.Trim(s, "_")
}

// Format returns the normalized extension ("csv" or "xlsx") for filename.
func Format(filename string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext {
	case "csv", "txt":
		return "csv", nil
	case "xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Read parses r according to the extension of filename.
func Read(filename string, r io.Reader) (*Table, error) {
	format, err := Format(filename)
	if err != nil {
		return nil, err
	}
	var records [][]string
	switch format {
	case "csv":
		records, err = readCSV(r)
	default:
		records, err = readXLSX(r)
	}
	if err != nil {
		return nil, err
	}
	return build(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func build(records [][]string) (*Table, error) {
	headerIdx := -1
	for i, rec := range records {
		if !blank(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[headerIdx]))
	for i, cell := range records[headerIdx] {
		headers[i] = Slug(cell)
	}

	table := &Table{Headers: headers}
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		values := make(map[string]string, len(headers))
		for col, key := range headers {
			if key == "" {
				continue
			}
			if col < len(rec) {
				values[key] = rec[col]
			} else {
				values[key] = ""
			}
		}
		table.Rows = append(table.Rows, Row{Number: i + 1, Values: values})
	}
	return table, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
