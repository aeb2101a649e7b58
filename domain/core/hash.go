package core

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// ComputeMatrixHash fingerprints a labelled numeric table. Row and column order are
// significant; missing values hash as "NaN".
func ComputeMatrixHash(rowIDs []string, columns []string, data [][]float64) Hash {
	var b strings.Builder
	b.WriteString(strings.Join(columns, "\x1f"))
	b.WriteByte('\x1e')
	for i, row := range data {
		if i < len(rowIDs) {
			b.WriteString(rowIDs[i])
		}
		for _, v := range row {
			b.WriteByte('\x1f')
			if math.IsNaN(v) {
				b.WriteString("NaN")
				continue
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte('\x1e')
	}
	return NewHash([]byte(b.String()))
}
