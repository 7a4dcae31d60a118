package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook returns xlsx bytes with rows written to the first sheet.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadRows_XLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Staff import, spring term"},
		{},
		{"username", "email", "fullName", "role", "password", "studyYear", "notes"},
		{"alice", "alice@example.com", "Alice", "student", "pw1", 2},
		{},
		{"bob", "bob@example.com", "Bob", "doctor", "pw2"},
	})

	rows, err := ReadRows(data, "users.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2, "title and blank rows are not data")

	assert.Equal(t, "alice", rows[0].Get(ColUsername))
	assert.Equal(t, "2", rows[0].Get(ColStudyYear))
	assert.Equal(t, "doctor", rows[1].Get(ColRole))
	assert.Equal(t, "", rows[1].Get(ColStudyYear))
	_, hasNotes := rows[0]["notes"]
	assert.False(t, hasNotes, "unknown columns are ignored")
}

func TestReadRows_XLSXDetectedByContent(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"username", "email"},
		{"carol", "carol@example.com"},
	})

	rows, err := ReadRows(data, "upload")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "carol", rows[0].Get(ColUsername))
}

func TestReadRows_XLSXReadsFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"username", "email"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"dana", "dana@example.com"}))

	idx, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]any{"username", "email"}))
	require.NoError(t, f.SetSheetRow("Notes", "A2", &[]any{"wrong", "wrong@example.com"}))
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadRows(buf.Bytes(), "users.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "dana", rows[0].Get(ColUsername))
}

func TestReadRows_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFusername,email,fullName,password,allowedFeatures,username\n" +
		"alice,alice@example.com,Alice,pw,\"[\"\"reports\"\"]\",ignored\n" +
		",,,,\n" +
		"bob,bob@example.com\n")

	rows, err := ReadRows(data, "users.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "alice", rows[0].Get(ColUsername), "first duplicate header wins")
	assert.Equal(t, `["reports"]`, rows[0].Get(ColAllowedFeatures))
	assert.Equal(t, "bob", rows[1].Get(ColUsername))
	assert.Equal(t, "", rows[1].Get(ColFullName), "short rows leave trailing columns empty")
}

func TestReadRows_CSVInvalidUTF8(t *testing.T) {
	data := []byte("username,fullName\nalice,Al\xffice\n")

	rows, err := ReadRows(data, "users.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Al\uFFFDice", rows[0].Get(ColFullName))
}

func TestReadRows_HeaderIsCaseSensitive(t *testing.T) {
	_, err := ReadRows([]byte("Username,Email\nalice,a@x\n"), "users.csv")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadRows_Failures(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		fileName string
		wantIs   error
	}{
		{"empty", nil, "users.csv", ErrEmptyFile},
		{"whitespace only", []byte(" \n\n "), "users.csv", ErrEmptyFile},
		{"no header", []byte("a,b\n1,2\n"), "users.csv", ErrNoHeader},
		{"unsupported type", []byte("%PDF-1.7"), "users.pdf", nil},
		{"corrupt workbook", []byte("PK\x03\x04garbage"), "users.xlsx", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRows(tt.data, tt.fileName)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %v", err)
			assert.Equal(t, tt.fileName, fe.FileName)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestReadRows_HeaderBeyondSearchWindow(t *testing.T) {
	var buf bytes.Buffer
	for i := range MaxHeaderSearchRows {
		fmt.Fprintf(&buf, "title %d\n", i)
	}
	buf.WriteString("username\nalice\n")

	_, err := ReadRows(buf.Bytes(), "users.csv")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload-123.csv")
	require.NoError(t, os.WriteFile(path, []byte("username\nalice\n"), 0o600))

	rows, err := ReadFile(path, "users.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), "missing.csv")
	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Columns, records[0])

	rows, err := ReadRows(append(buf.Bytes(), "alice\n"...), "template.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Get(ColUsername))
}
