package excel

// RawRow holds one data row as trimmed cell strings, aligned with ExcelData.Headers
type RawRow []string

// ExcelData represents the complete table as read from disk
type ExcelData struct {
	Headers []string // Column headers
	Rows    []RawRow // Data rows
}

// ColumnIndex returns the position of a header, or -1
func (d *ExcelData) ColumnIndex(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	return -1
}
