package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Column layout of the registration sheet export. The objective column is
// optional; older exports have only six columns.
const (
	colTimestamp = iota
	colEmail
	colUserName
	colMemberName
	colBlock
	colKumi
	colObjective
)

// LoadCSV reads a UTF-8 roster export. The first line is the sheet header
// and is skipped. Row references count from 1 at the header, matching sheet
// row numbers.
func LoadCSV(r io.Reader) ([]RegistrationRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // 6 or 7 columns

	var rows []RegistrationRow
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster CSV: %w", err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(record) < colKumi+1 {
			return nil, fmt.Errorf("roster row %d has %d columns, want at least %d", line, len(record), colKumi+1)
		}
		row := RegistrationRow{
			Row:        line,
			Timestamp:  strings.TrimSpace(record[colTimestamp]),
			Email:      strings.TrimSpace(record[colEmail]),
			UserName:   strings.TrimSpace(record[colUserName]),
			MemberName: strings.TrimSpace(record[colMemberName]),
			Block:      strings.TrimSpace(record[colBlock]),
			Kumi:       strings.TrimSpace(record[colKumi]),
		}
		if len(record) > colObjective {
			row.Objective = strings.TrimSpace(record[colObjective])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadCSVShiftJIS reads a roster export saved in Shift-JIS, which is what
// the spreadsheet tooling produces on Japanese locales.
func LoadCSVShiftJIS(r io.Reader) ([]RegistrationRow, error) {
	return LoadCSV(transform.NewReader(r, japanese.ShiftJIS.NewDecoder()))
}

// LoadFile reads a roster export from disk, decoding Shift-JIS when the
// filename carries the conventional ".sjis.csv" suffix.
func LoadFile(path string) ([]RegistrationRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".sjis.csv") {
		return LoadCSVShiftJIS(f)
	}
	return LoadCSV(f)
}
