package quant

import (
	"fmt"
	"math"

	"cimpute/domain/core"
)

// Missing is the marker stored in Matrix.Data for an unobserved cell.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Matrix is a quantification table: rows are measured entities (e.g. proteins), columns
// are samples. Missing cells hold NaN.
type Matrix struct {
	Data      [][]float64     // rows=entities, cols=samples
	EntityIDs []core.EntityID // row identifiers, unique
	Columns   []string        // sample column names, unique
}

// NewMatrix builds a matrix and validates its shape.
func NewMatrix(ids []core.EntityID, columns []string, data [][]float64) (*Matrix, error) {
	m := &Matrix{Data: data, EntityIDs: ids, Columns: columns}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate ensures the matrix is internally consistent. Cells are finite or missing.
func (m *Matrix) Validate() error {
	if len(m.Data) != len(m.EntityIDs) {
		return core.NewShapeMismatchError("entity_ids",
			fmt.Sprintf("%d ids for %d rows", len(m.EntityIDs), len(m.Data)))
	}

	seenCols := make(map[string]bool, len(m.Columns))
	for _, c := range m.Columns {
		if seenCols[c] {
			return core.NewShapeMismatchError("columns", fmt.Sprintf("duplicate column %q", c))
		}
		seenCols[c] = true
	}

	seenIDs := make(map[core.EntityID]bool, len(m.EntityIDs))
	for i, id := range m.EntityIDs {
		if seenIDs[id] {
			return core.NewShapeMismatchError("entity_ids", fmt.Sprintf("duplicate id %q", id))
		}
		seenIDs[id] = true

		if len(m.Data[i]) != len(m.Columns) {
			return core.NewShapeMismatchError("matrix_data",
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(m.Data[i]), len(m.Columns)))
		}
		for j, v := range m.Data[i] {
			if math.IsInf(v, 0) {
				return core.NewShapeMismatchError("matrix_data",
					fmt.Sprintf("row %q column %q holds %v", id, m.Columns[j], v))
			}
		}
	}
	return nil
}

// RowCount returns the number of entities (rows)
func (m *Matrix) RowCount() int {
	return len(m.Data)
}

// ColumnCount returns the number of sample columns
func (m *Matrix) ColumnCount() int {
	return len(m.Columns)
}

// ColumnIndex returns the position of a column
func (m *Matrix) ColumnIndex(name string) (int, bool) {
	for i, c := range m.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Select copies the named columns, in the given order, into a new matrix with the
// same rows.
func (m *Matrix) Select(columns []string) (*Matrix, error) {
	idx := make([]int, len(columns))
	for j, name := range columns {
		i, ok := m.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w %q", core.ErrShapeMismatch, core.ErrColumnNotFound, name)
		}
		idx[j] = i
	}

	out := &Matrix{
		Data:      make([][]float64, len(m.Data)),
		EntityIDs: append([]core.EntityID(nil), m.EntityIDs...),
		Columns:   append([]string(nil), columns...),
	}
	for r, row := range m.Data {
		sel := make([]float64, len(idx))
		for j, i := range idx {
			sel[j] = row[i]
		}
		out.Data[r] = sel
	}
	return out, nil
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{
		Data:      make([][]float64, len(m.Data)),
		EntityIDs: append([]core.EntityID(nil), m.EntityIDs...),
		Columns:   append([]string(nil), m.Columns...),
	}
	for i, row := range m.Data {
		out.Data[i] = append([]float64(nil), row...)
	}
	return out
}

// MissingCount counts missing cells over the whole matrix
func (m *Matrix) MissingCount() int {
	n := 0
	for _, row := range m.Data {
		n += CountMissing(row)
	}
	return n
}

// CountMissing counts missing entries in a vector
func CountMissing(values []float64) int {
	n := 0
	for _, v := range values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// ConcatColumns joins matrices side by side. All parts must carry the same row ids in
// the same order.
func ConcatColumns(parts ...*Matrix) (*Matrix, error) {
	if len(parts) == 0 {
		return &Matrix{}, nil
	}

	first := parts[0]
	out := &Matrix{
		Data:      make([][]float64, first.RowCount()),
		EntityIDs: append([]core.EntityID(nil), first.EntityIDs...),
	}
	for _, p := range parts {
		if p.RowCount() != first.RowCount() {
			return nil, core.NewShapeMismatchError("concat",
				fmt.Sprintf("%d rows, expected %d", p.RowCount(), first.RowCount()))
		}
		for i, id := range p.EntityIDs {
			if id != first.EntityIDs[i] {
				return nil, core.NewShapeMismatchError("concat",
					fmt.Sprintf("row %d is %q, expected %q", i, id, first.EntityIDs[i]))
			}
		}
		out.Columns = append(out.Columns, p.Columns...)
	}

	for i := range out.Data {
		row := make([]float64, 0, len(out.Columns))
		for _, p := range parts {
			row = append(row, p.Data[i]...)
		}
		out.Data[i] = row
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fingerprint hashes ids, columns and values
func (m *Matrix) Fingerprint() core.Hash {
	ids := make([]string, len(m.EntityIDs))
	for i, id := range m.EntityIDs {
		ids[i] = id.String()
	}
	return core.ComputeMatrixHash(ids, m.Columns, m.Data)
}
