package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"cimpute/domain/quant"
	"cimpute/internal"
	"cimpute/internal/errors"

	"github.com/xuri/excelize/v2"
)

const resultSheet = "Sheet1"

// ResultWriter exports an imputation result as xlsx or csv, chosen by file extension
type ResultWriter struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// NewResultWriter creates a writer for path
func NewResultWriter(filePath string) *ResultWriter {
	return &ResultWriter{
		filePath: filePath,
		fileType: fileTypeOf(filePath),
		logger:   internal.DefaultLogger.With("ResultWriter"),
	}
}

// WithLogger replaces the writer's logger
func (w *ResultWriter) WithLogger(logger *internal.Logger) *ResultWriter {
	w.logger = logger.With("ResultWriter")
	return w
}

// Write stores the id column, the imputed group columns and the diagnostic columns.
// Missing values are written as empty cells.
func (w *ResultWriter) Write(idColumn string, result *quant.Result) error {
	if result == nil || result.Matrix == nil {
		return errors.InvalidInput("nothing to write", nil)
	}

	headers := append([]string{idColumn}, result.Matrix.Columns...)
	headers = append(headers, result.DiagnosticColumns()...)

	rows := make([][]interface{}, result.Matrix.RowCount())
	for i, values := range result.Matrix.Data {
		row := make([]interface{}, 0, len(headers))
		row = append(row, result.Matrix.EntityIDs[i].String())
		for _, v := range values {
			row = append(row, cellValue(v))
		}
		for _, v := range result.DiagnosticRow(i) {
			if f, ok := v.(float64); ok {
				v = cellValue(f)
			}
			row = append(row, v)
		}
		rows[i] = row
	}

	var err error
	switch w.fileType {
	case "csv":
		err = writeCSV(w.filePath, headers, rows)
	default:
		err = writeXLSX(w.filePath, headers, rows)
	}
	if err != nil {
		return errors.FileError(w.filePath, err)
	}
	w.logger.Info("wrote %d rows, %d columns to %s", len(rows), len(headers), w.filePath)
	return nil
}

// cellValue maps the missing marker to an empty cell
func cellValue(v float64) interface{} {
	if quant.IsMissing(v) {
		return nil
	}
	return v
}

func writeXLSX(path string, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(resultSheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(resultSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, headers []string, rows [][]interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
