package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cimpute/domain/core"
	"cimpute/domain/quant"
	"cimpute/internal"
	"cimpute/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return &DataReader{
		filePath: filePath,
		fileType: fileTypeOf(filePath),
		logger:   internal.DefaultLogger.With("DataReader"),
	}
}

// WithLogger replaces the reader's logger
func (r *DataReader) WithLogger(logger *internal.Logger) *DataReader {
	r.logger = logger.With("DataReader")
	return r
}

func fileTypeOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "xlsx"
}

// ReadData reads the raw table: the header row and every data row as trimmed strings
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.FileError(r.filePath, err)
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, errors.FileError(r.filePath, err)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput(
			fmt.Sprintf("%s must have a header row and at least one data row", r.filePath),
			core.NewEmptyInputError(0))
	}
	return r.processRows(rows), nil
}

// readExcelRows reads the first sheet
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows trims cells and pads short rows to the header width. Spreadsheet rows
// lose their trailing empty cells, which are missing values here.
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([]RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make(RawRow, len(headers))
		for j := range headers {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
		}
		data = append(data, cells)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))
	return &ExcelData{Headers: headers, Rows: data}
}

// ReadMatrix loads the table and keeps the columns whose header contains quantMarker,
// keyed by idColumn. An empty marker keeps every column. Empty, NaN and NA cells become
// missing values.
func (r *DataReader) ReadMatrix(idColumn, quantMarker string) (*quant.Matrix, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return data.ToMatrix(idColumn, quantMarker)
}

// ToMatrix converts raw rows into a quantification matrix
func (d *ExcelData) ToMatrix(idColumn, quantMarker string) (*quant.Matrix, error) {
	idIdx := d.ColumnIndex(idColumn)
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %w %q", core.ErrShapeMismatch, core.ErrColumnNotFound, idColumn)
	}

	var (
		columns []string
		indices []int
	)
	for i, h := range d.Headers {
		if i != idIdx && strings.Contains(h, quantMarker) {
			columns = append(columns, h)
			indices = append(indices, i)
		}
	}
	if len(columns) == 0 {
		return nil, core.NewShapeMismatchError("columns",
			fmt.Sprintf("no column header contains %q", quantMarker))
	}

	ids := make([]core.EntityID, len(d.Rows))
	values := make([][]float64, len(d.Rows))
	for r, row := range d.Rows {
		id, err := core.ParseEntityID(row[idIdx])
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d: empty %s", r+2, idColumn), err)
		}
		ids[r] = id

		values[r] = make([]float64, len(indices))
		for j, c := range indices {
			v, err := ParseCell(row[c])
			if err != nil {
				return nil, errors.InvalidInput(
					fmt.Sprintf("row %d, column %s: %q is not a finite number", r+2, d.Headers[c], row[c]), err)
			}
			values[r][j] = v
		}
	}

	return quant.NewMatrix(ids, columns, values)
}

// ParseCell converts a cell to a float. Empty cells, NaN and NA are missing; infinite
// values are rejected.
func ParseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "na") {
		return quant.Missing, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("infinite value %q", s)
	}
	return v, nil
}
