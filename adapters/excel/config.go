package excel

// ExcelConfig holds configuration for a quantification table source
type ExcelConfig struct {
	FilePath    string   `json:"file_path"`
	IDColumn    string   `json:"id_column"`
	QuantMarker string   `json:"quant_marker"`
	Groups      []string `json:"groups"`

	// MinPresentFraction drops rows observed in less than this share of every group.
	// Zero keeps all rows.
	MinPresentFraction float64 `json:"min_present_fraction"`

	// Log2 transforms the quantification columns after loading.
	Log2 bool `json:"log2"`
}

// DefaultExcelConfig returns the column conventions of label-free quantification exports
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		IDColumn:    "protein_id",
		QuantMarker: "log2_lfq",
	}
}
