package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheet is a named row-major grid of cells.
type sheet struct {
	name string
	rows [][]string
}

// decodeWorkbook decodes XLSX bytes into one grid per sheet.
// A sheet that fails to decode is returned as a ParseError alongside the
// sheets that decoded cleanly.
func decodeWorkbook(data []byte, sourceName string) ([]sheet, []*ParseError, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &ParseError{Source: sourceName, Err: err}
	}
	defer f.Close()

	var (
		sheets     []sheet
		parseFails []*ParseError
	)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			parseFails = append(parseFails, &ParseError{Source: name, Err: err})
			continue
		}
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, sheet{name: name, rows: padRows(rows)})
	}

	return sheets, parseFails, nil
}

// decodeCSV decodes CSV bytes into a single grid named after the source.
func decodeCSV(data []byte, sourceName string) ([]sheet, []*ParseError, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Source: sourceName, Err: err}
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, nil, &ParseError{Source: sourceName, Err: fmt.Errorf("no rows")}
	}

	return []sheet{{name: sourceName, rows: padRows(rows)}}, nil, nil
}

// padRows normalizes a ragged grid so every row has the width of the widest row.
// excelize trims trailing empty cells, which would otherwise skew header
// detection ratios and column alignment.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}
