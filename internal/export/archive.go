package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"crypto-export/internal/table"
)

const namePrefix = "crypto_data"

// Timestamp formats t the way archive names embed it.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02_15-04-05")
}

// Package serializes the dataset to CSV and XLSX, both sorted descending by
// the Name column, and bundles them under one timestamped folder inside a
// deflate zip. Everything stays in memory.
func Package(ds *table.Dataset, timestamp string) ([]byte, error) {
	if timestamp == "" {
		timestamp = Timestamp(time.Now())
	}
	folder := fmt.Sprintf("%s_%s", namePrefix, timestamp)

	order := sortedByNameDesc(ds)

	xlsxData, err := writeXLSX(ds, order)
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	csvData, err := writeCSV(ds, order)
	if err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{fmt.Sprintf("%s/%s_%s.xlsx", folder, namePrefix, timestamp), xlsxData},
		{fmt.Sprintf("%s/%s_%s.csv", folder, namePrefix, timestamp), csvData},
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create zip entry: %w", err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("write zip entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// sortedByNameDesc returns row indices ordered by the Name column,
// descending lexicographic. Without a Name column (cannot happen for built
// datasets) build order is kept.
func sortedByNameDesc(ds *table.Dataset) []int {
	order := make([]int, ds.RowCount())
	for i := range order {
		order[i] = i
	}
	nameIdx := ds.ColumnIndex("Name")
	if nameIdx < 0 {
		return order
	}
	names := ds.Columns[nameIdx].Values
	sort.SliceStable(order, func(a, b int) bool {
		return cellString(names[order[a]]) > cellString(names[order[b]])
	})
	return order
}

func writeCSV(ds *table.Dataset, order []int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Header()); err != nil {
		return nil, err
	}
	record := make([]string, len(ds.Columns))
	for _, idx := range order {
		row := ds.Row(idx)
		for j, cell := range row {
			record[j] = cellString(cell)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSX(ds *table.Dataset, order []int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(ds.Columns))
	for i, title := range ds.Header() {
		header[i] = title
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, idx := range order {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := ds.Row(idx)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
