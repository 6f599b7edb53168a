package payments

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"TahsilatRaporu/api/payments/normalizer"
)

// ParseFile reads an uploaded sheet into a header row plus data rows. The
// format is picked from the file extension: .xlsx, .xls, .csv and .json are
// supported.
func ParseFile(filename string, r io.Reader) ([]string, [][]interface{}, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(r)
	case ".xls":
		return parseXLS(r)
	case ".csv":
		return parseCSV(r)
	case ".json":
		return parseJSON(r)
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

func parseXLSX(r io.Reader) ([]string, [][]interface{}, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	headers := rows[0]
	data := make([][]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		data = append(data, cells)
	}
	return headers, data, nil
}

func parseXLS(r io.Reader) ([]string, [][]interface{}, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read xls: %w", err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(buf), "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil || sheet.MaxRow == 0 {
		return nil, nil, fmt.Errorf("workbook has no usable sheet")
	}

	readRow := func(idx int) []interface{} {
		row := sheet.Row(idx)
		if row == nil {
			return nil
		}
		cells := make([]interface{}, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		return cells
	}

	first := readRow(0)
	headers := make([]string, len(first))
	for i, cell := range first {
		if s, ok := cell.(string); ok {
			headers[i] = s
		}
	}
	var data [][]interface{}
	for i := 1; i <= int(sheet.MaxRow); i++ {
		if cells := readRow(i); cells != nil {
			data = append(data, cells)
		}
	}
	return headers, data, nil
}

func parseCSV(r io.Reader) ([]string, [][]interface{}, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	reader := csv.NewReader(bytes.NewReader(buf))
	reader.FieldsPerRecord = -1
	// Turkish exports often use semicolons.
	if line, _, ok := bytes.Cut(buf, []byte("\n")); ok || len(line) > 0 {
		if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
			reader.Comma = ';'
		}
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv file is empty")
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	data := make([][]interface{}, 0, len(records)-1)
	for _, rec := range records[1:] {
		cells := make([]interface{}, len(rec))
		for i, cell := range rec {
			cells[i] = cell
		}
		data = append(data, cells)
	}
	return headers, data, nil
}

// parseJSON accepts an array of flat objects and maps keys as column headers.
func parseJSON(r io.Reader) ([]string, [][]interface{}, error) {
	var objects []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil, fmt.Errorf("json file has no records")
	}

	var headers []string
	seen := map[string]bool{}
	for _, obj := range objects {
		for key := range obj {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}

	data := make([][]interface{}, 0, len(objects))
	for _, obj := range objects {
		cells := make([]interface{}, len(headers))
		for i, key := range headers {
			cells[i] = obj[key]
		}
		data = append(data, cells)
	}
	return headers, data, nil
}

// BuildRecords maps parsed rows onto canonical payments. Row numbers in the
// issues are 1-based data rows, matching what the operator sees in the sheet.
func BuildRecords(headers []string, rows [][]interface{}, now time.Time) ([]Payment, []RowIssue, error) {
	mapping := normalizer.MapHeaders(headers)
	if len(mapping) == 0 {
		return nil, nil, fmt.Errorf("no recognizable columns in header row")
	}

	var (
		records []Payment
		issues  []RowIssue
	)
	for i, row := range rows {
		record, rowIssues, ok := BuildRecord(i+1, row, mapping, now)
		issues = append(issues, rowIssues...)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records, issues, nil
}
