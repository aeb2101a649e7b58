package ports

import (
	"cimpute/domain/quant"
)

// MatrixReaderPort loads a quantification table keyed by an identifier column
type MatrixReaderPort interface {
	// ReadMatrix returns the rows of the table with idColumn as entity ids. Only columns
	// containing quantMarker are kept; an empty marker keeps every column but idColumn.
	ReadMatrix(idColumn, quantMarker string) (*quant.Matrix, error)
}

// ResultWriterPort persists an imputation result
type ResultWriterPort interface {
	Write(idColumn string, result *quant.Result) error
}
