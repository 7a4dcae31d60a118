package core

// reader.go turns an uploaded spreadsheet into ordered ImportRows.
//
// Two formats are accepted: Office Open XML workbooks (.xlsx, .xlsm) read with
// excelize, and CSV read with encoding/csv. The header row may be preceded by
// title rows; the first row within MaxHeaderSearchRows that contains the
// username column is taken as the header. Rows that are entirely blank are
// dropped. No field validation happens here.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxHeaderSearchRows is the maximum number of rows to scan for the header.
var MaxHeaderSearchRows = 20

// zipMagic starts every xlsx file.
var zipMagic = []byte("PK\x03\x04")

type fileKind int

const (
	kindUnknown fileKind = iota
	kindXLSX
	kindCSV
)

// ReadFile parses the spreadsheet at path. fileName is the name the client
// uploaded it under and is used to pick the format.
func ReadFile(path, fileName string) ([]ImportRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{FileName: fileName, Err: err}
	}
	return ReadRows(data, fileName)
}

// ReadRows parses spreadsheet content. Any failure is a *FormatError.
func ReadRows(data []byte, fileName string) ([]ImportRow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &FormatError{FileName: fileName, Err: ErrEmptyFile}
	}

	var (
		records [][]string
		err     error
	)
	switch detectKind(data, fileName) {
	case kindXLSX:
		records, err = readXLSX(data)
	case kindCSV:
		records, err = readCSV(data)
	default:
		err = fmt.Errorf("unsupported file type %q (use .xlsx or .csv)", filepath.Ext(fileName))
	}
	if err != nil {
		return nil, &FormatError{FileName: fileName, Err: err}
	}

	rows, err := rowsFromRecords(records)
	if err != nil {
		return nil, &FormatError{FileName: fileName, Err: err}
	}
	return rows, nil
}

func detectKind(data []byte, fileName string) fileKind {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return kindXLSX
	case ".csv":
		return kindCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return kindXLSX
	}
	if fileName == "" || filepath.Ext(fileName) == ".txt" {
		if utf8.Valid(data) {
			return kindCSV
		}
	}
	return kindUnknown
}

// readXLSX returns the cells of the first sheet in workbook order. The
// selected tab is ignored.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readCSV parses CSV, dropping a leading BOM and replacing invalid UTF-8
// with U+FFFD.
func readCSV(data []byte) ([][]string, error) {
	text := transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder())

	r := csv.NewReader(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// rowsFromRecords locates the header and maps every later non-blank record.
func rowsFromRecords(records [][]string) ([]ImportRow, error) {
	headerAt := findHeader(records)
	if headerAt < 0 {
		return nil, fmt.Errorf("%w (expected a %q column within the first %d rows)", ErrNoHeader, ColUsername, MaxHeaderSearchRows)
	}

	// column position -> known column name
	positions := make(map[int]string)
	for i, h := range records[headerAt] {
		name := CleanCell(h)
		if !slices.Contains(Columns, name) {
			continue
		}
		if slices.Contains(mapValues(positions), name) {
			continue // first occurrence wins
		}
		positions[i] = name
	}

	rows := make([]ImportRow, 0, len(records)-headerAt-1)
	for _, rec := range records[headerAt+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(ImportRow, len(positions))
		for pos, name := range positions {
			if pos < len(rec) {
				row[name] = rec[pos]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func findHeader(records [][]string) int {
	limit := min(len(records), MaxHeaderSearchRows)
	for i := 0; i < limit; i++ {
		for _, cell := range records[i] {
			if CleanCell(cell) == ColUsername {
				return i
			}
		}
	}
	return -1
}

func mapValues(m map[int]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteTemplate writes a CSV containing only the header row.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
