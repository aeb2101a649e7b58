package quant

import (
	"fmt"
)

// MVClass is the missing-value category of one entity within one group.
type MVClass int

const (
	Unclassified MVClass = iota
	NoMissing
	MCAR
	MNAR
	MAR
)

// Classes lists the assignable categories in processing order
var Classes = []MVClass{MCAR, MNAR, MAR, NoMissing}

func (c MVClass) String() string {
	switch c {
	case NoMissing:
		return "NM"
	case MCAR:
		return "MCAR"
	case MNAR:
		return "MNAR"
	case MAR:
		return "MAR"
	default:
		return "unclassified"
	}
}

// ParseMVClass reverses String
func ParseMVClass(s string) (MVClass, error) {
	for _, c := range Classes {
		if c.String() == s {
			return c, nil
		}
	}
	return Unclassified, fmt.Errorf("unknown missing value class %q", s)
}

// DetectionBounds holds the detection limit (DMin), the largest observed value (DMax)
// and the upper MNAR boundary between them.
type DetectionBounds struct {
	DMin   float64 `json:"d_min"`
	UpMNAR float64 `json:"up_mnar"`
	DMax   float64 `json:"d_max"`
}

// Scale is the spread used by MinProb sampling. The support of sampled values is
// [DMin, DMin+Scale].
func (b DetectionBounds) Scale() float64 {
	return b.UpMNAR - b.DMin/2
}

// Range is the detection range DMax-DMin
func (b DetectionBounds) Range() float64 {
	return b.DMax - b.DMin
}
