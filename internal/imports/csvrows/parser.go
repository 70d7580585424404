// Package csvrows turns an uploaded revenue spreadsheet export into import rows.
package csvrows

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	ErrMissingHeader   = errors.New("header row is missing")
	ErrMissingColumns  = errors.New("required columns are missing")
)

const (
	colPeriod  = "period"
	colClient  = "client_name"
	colCompany = "company_name"
	colAmount  = "amount"
)

// aliases maps accepted header spellings to canonical column names.
var aliases = map[string]string{
	"period":       colPeriod,
	"periodo":      colPeriod,
	"month":        colPeriod,
	"client_name":  colClient,
	"client":       colClient,
	"cliente":      colClient,
	"company_name": colCompany,
	"company":      colCompany,
	"mandante":     colCompany,
	"amount":       colAmount,
	"importo":      colAmount,
	"fatturato":    colAmount,
}

// Parse reads a header row followed by data rows. The delimiter is detected
// from the header (";" when it has more semicolons than commas). Rows with
// no non-blank cell are skipped.
func Parse(r io.Reader) ([]imports.RawRow, error) {
	buf := bufio.NewReader(r)
	if bom, err := buf.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = buf.Discard(3)
	}
	data, err := io.ReadAll(buf)
	if err != nil {
		return nil, fmt.Errorf("csvrows: read: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csvrows: header: %w", err)
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	rows := make([]imports.RawRow, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("csvrows: line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, imports.RawRow{
			Period:      field(record, index[colPeriod]),
			ClientName:  field(record, index[colClient]),
			CompanyName: field(record, index[colCompany]),
			Amount:      field(record, index[colAmount]),
		})
	}
	return rows, nil
}

func detectDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(aliases))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := aliases[key]; ok {
			if _, seen := index[canonical]; !seen {
				index[canonical] = i
			}
		}
	}
	var missing []string
	for _, col := range []string{colPeriod, colClient, colCompany, colAmount} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
