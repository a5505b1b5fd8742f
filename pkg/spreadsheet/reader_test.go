package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "roll_no", Slug(" Roll No "))
	assert.Equal(t, "iq_score", Slug("IQ-Score"))
	assert.Equal(t, "nrc_no", Slug("NRC No."))
}

func TestReadCSVSkipsEmptyRowsAndKeepsSheetNumbers(t *testing.T) {
	body := "\ufeffSchool,Roll No,Name\nNewU,1,Aye\n,,\nNewU,2,Ko\n"
	table, err := Read("students.CSV", strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, []string{"school", "roll_no", "name"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, "Aye", table.Rows[0].Values["name"])
	assert.Equal(t, 4, table.Rows[1].Number)
	assert.Equal(t, "2", table.Rows[1].Values["roll_no"])
}

func TestReadCSVShortRowFillsBlanks(t *testing.T) {
	table, err := Read("a.csv", strings.NewReader("school,name,email\nNewU,Aye\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "", table.Rows[0].Values["email"])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"School", "IQ Score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"NewU", 72}))
	buf := &bytes.Buffer{}
	_, err := f.WriteTo(buf)
	require.NoError(t, err)

	table, err := Read("batch.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "72", table.Rows[0].Values["iq_score"])
	assert.Equal(t, 2, table.Rows[0].Number)
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Read("students.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("empty.csv", strings.NewReader("\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}
