package csvrows

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
)

func TestParseCommaFileWithBOM(t *testing.T) {
	input := "\ufeffperiod,client_name,company_name,amount\n" +
		"2024-01,Acme,Beta Srl,\"1,250.00\"\n" +
		"\n" +
		"2024-02-01, Rossi ,Beta Srl,300\n"

	rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, imports.RawRow{Period: "2024-01", ClientName: "Acme", CompanyName: "Beta Srl", Amount: "1,250.00"}, rows[0])
	assert.Equal(t, "Rossi", rows[1].ClientName)
}

func TestParseSemicolonItalianHeaders(t *testing.T) {
	input := "Periodo;Cliente;Mandante;Importo\r\n" +
		"2023-11;Bar Centrale;Caffè Uno;1.234,56\r\n" +
		";;;\r\n" +
		"2023-12;Bar Centrale;Caffè Uno;\r\n"

	rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.234,56", rows[0].Amount)
	assert.Equal(t, "Caffè Uno", rows[0].CompanyName)
	assert.Empty(t, rows[1].Amount)
}

func TestParseShortRecordLeavesFieldsEmpty(t *testing.T) {
	rows, err := Parse(strings.NewReader("amount,period,client_name,company_name\n10,2024-01\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10", rows[0].Amount)
	assert.Empty(t, rows[0].ClientName)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("   \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Parse(strings.NewReader("period,client_name\n2024-01,A\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "company_name, amount")

	_, err = Parse(strings.NewReader("period,client_name,company_name,amount\n\xff\xfe\n"))
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
