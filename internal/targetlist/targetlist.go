// Package targetlist reads the authoritative serial lists that line items
// are reconciled against. Plain text, CSV and XLSX files are supported.
package targetlist

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions Read does not know.
var ErrUnsupportedFormat = errors.New("unsupported target list format")

// headerNames are first-row cells that mark a serial column header.
var headerNames = map[string]bool{
	"serial":        true,
	"serials":       true,
	"serial number": true,
	"serialnumber":  true,
	"s/n":           true,
	"sn":            true,
	"seriennummer":  true,
}

// Read returns the serials listed in the file at path, in file order.
// The format is chosen by extension: .txt, .csv or .xlsx.
func Read(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".lst", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open target list: %w", err)
		}
		defer f.Close()
		return ParseText(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open target list: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseText reads one serial per line. Blank lines and lines starting
// with # are skipped.
func ParseText(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return out, nil
}

// ParseCSV reads serials from a CSV file. See fromRows for column
// selection.
func ParseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV target list: %w", err)
	}
	return fromRows(rows), nil
}

// ReadXLSX reads serials from the first sheet of a workbook.
func ReadXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return fromRows(rows), nil
}

// fromRows picks the serial column from tabular data. When the first row
// has a recognised header cell that column is used and the header row is
// dropped; otherwise the first column is used.
func fromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	col, start := 0, 0
	for i, cell := range rows[0] {
		if headerNames[strings.ToLower(strings.TrimSpace(cell))] {
			col, start = i, 1
			break
		}
	}

	var out []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
