package excel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"cimpute/domain/core"
	"cimpute/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadMatrix_CSV(t *testing.T) {
	path := writeFile(t, "proteins.csv",
		"protein_id,gene,log2_lfq_A_1,log2_lfq_A_2,log2_lfq_B_1\n"+
			"P1,g1,1.5,,NaN\n"+
			"P2,g2, 2 ,NA,3\n")

	m, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
	require.NoError(t, err)

	assert.Equal(t, []core.EntityID{"P1", "P2"}, m.EntityIDs)
	assert.Equal(t, []string{"log2_lfq_A_1", "log2_lfq_A_2", "log2_lfq_B_1"}, m.Columns)
	assert.Equal(t, 1.5, m.Data[0][0])
	assert.True(t, math.IsNaN(m.Data[0][1]))
	assert.True(t, math.IsNaN(m.Data[0][2]))
	assert.Equal(t, 2.0, m.Data[1][0])
	assert.True(t, math.IsNaN(m.Data[1][1]))
	assert.Equal(t, 3.0, m.Data[1][2])
}

func TestReadMatrix_XLSX(t *testing.T) {
	path := writeWorkbook(t, "proteins.xlsx", [][]interface{}{
		{"protein_id", "log2_lfq_A_1", "log2_lfq_A_2"},
		{"P1", 20.25, 21.5},
		{"P2", 19.0}, // trailing cell absent
		{"P3", "nan", 18.75},
	})

	m, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
	require.NoError(t, err)

	assert.Equal(t, []core.EntityID{"P1", "P2", "P3"}, m.EntityIDs)
	assert.Equal(t, []float64{20.25, 21.5}, m.Data[0])
	assert.Equal(t, 19.0, m.Data[1][0])
	assert.True(t, math.IsNaN(m.Data[1][1]))
	assert.True(t, math.IsNaN(m.Data[2][0]))
	assert.Equal(t, 18.75, m.Data[2][1])
}

func TestReadMatrix_EmptyMarkerKeepsAllColumns(t *testing.T) {
	path := writeFile(t, "t.csv", "id,x,y\nP1,1,2\n")

	m, err := NewDataReader(path).ReadMatrix("id", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, m.Columns)
}

func TestReadMatrix_Errors(t *testing.T) {
	t.Run("duplicate ids", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,log2_lfq_1\nP1,1\nP1,2\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("id column absent", func(t *testing.T) {
		path := writeFile(t, "t.csv", "id,log2_lfq_1\nP1,1\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.ErrorIs(t, err, core.ErrColumnNotFound)
	})

	t.Run("no quant columns", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,intensity_1\nP1,1\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("text in a quant column", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,log2_lfq_1\nP1,high\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("infinite value", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,log2_lfq_1\nP1,1\nP2,inf\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("empty id", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,log2_lfq_1\n,1\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("header only", func(t *testing.T) {
		path := writeFile(t, "t.csv", "protein_id,log2_lfq_1\n")
		_, err := NewDataReader(path).ReadMatrix("protein_id", "log2_lfq")
		assert.ErrorIs(t, err, core.ErrEmptyInput)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewDataReader(filepath.Join(t.TempDir(), "absent.xlsx")).ReadMatrix("protein_id", "log2_lfq")
		assert.Equal(t, errors.CodeFileError, errors.GetCode(err))
	})
}

func TestParseCell(t *testing.T) {
	for _, s := range []string{"", "  ", "NaN", "nan", "NA", "na"} {
		v, err := ParseCell(s)
		require.NoError(t, err, s)
		assert.True(t, math.IsNaN(v), s)
	}

	v, err := ParseCell(" -1.25 ")
	require.NoError(t, err)
	assert.Equal(t, -1.25, v)

	_, err = ParseCell("n/a")
	assert.Error(t, err)

	for _, s := range []string{"inf", "+Inf", "-inf", "Infinity"} {
		_, err := ParseCell(s)
		assert.Error(t, err, s)
	}
}
