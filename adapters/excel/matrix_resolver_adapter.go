package excel

import (
	"fmt"

	"cimpute/domain/quant"
	"cimpute/internal"
	"cimpute/internal/groups"
	"cimpute/internal/preprocess"
	"cimpute/ports"
)

// MatrixResolverAdapter turns a table on disk into an imputation-ready matrix and its
// group mapping
type MatrixResolverAdapter struct {
	config ExcelConfig
	reader ports.MatrixReaderPort
	logger *internal.Logger
}

// NewMatrixResolverAdapter creates a resolver reading config.FilePath
func NewMatrixResolverAdapter(config ExcelConfig) *MatrixResolverAdapter {
	return &MatrixResolverAdapter{
		config: config,
		reader: NewDataReader(config.FilePath),
		logger: internal.DefaultLogger.With("MatrixResolver"),
	}
}

// WithLogger replaces the adapter's logger and that of its table reader
func (a *MatrixResolverAdapter) WithLogger(logger *internal.Logger) *MatrixResolverAdapter {
	a.logger = logger.With("MatrixResolver")
	if r, ok := a.reader.(*DataReader); ok {
		r.WithLogger(logger)
	}
	return a
}

// WithReader swaps the table source
func (a *MatrixResolverAdapter) WithReader(reader ports.MatrixReaderPort) *MatrixResolverAdapter {
	a.reader = reader
	return a
}

// ResolveMatrix reads the table, assigns its quantification columns to groups, then
// applies the optional presence filter and log2 transform. Only grouped columns are kept.
func (a *MatrixResolverAdapter) ResolveMatrix() (*quant.Matrix, quant.GroupColumns, error) {
	// Step 1: Read quantification columns
	raw, err := a.reader.ReadMatrix(a.config.IDColumn, a.config.QuantMarker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table: %w", err)
	}

	// Step 2: Resolve group membership
	mapping, err := groups.Resolve(raw.Columns, a.config.Groups, a.config.QuantMarker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve groups: %w", err)
	}
	m, err := raw.Select(mapping.AllColumns())
	if err != nil {
		return nil, nil, err
	}

	// Step 3: Presence filter
	if a.config.MinPresentFraction > 0 {
		before := m.RowCount()
		if m, err = preprocess.FilterGroups(m, mapping, a.config.MinPresentFraction); err != nil {
			return nil, nil, fmt.Errorf("presence filter failed: %w", err)
		}
		a.logger.Info("presence filter %.2f kept %d of %d rows", a.config.MinPresentFraction, m.RowCount(), before)
	}

	// Step 4: log2 scale
	if a.config.Log2 {
		if m, err = preprocess.Log2(m, mapping.AllColumns()); err != nil {
			return nil, nil, fmt.Errorf("log2 transform failed: %w", err)
		}
	}

	a.logger.Debug("resolved %d rows over %d groups (%d columns)", m.RowCount(), len(mapping), m.ColumnCount())
	return m, mapping, nil
}
