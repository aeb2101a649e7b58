// Package simulate generates label-free quantification tables with known missingness.
// Values below the detection limit are censored (MNAR) and a share of the remaining
// cells is dropped at random (MCAR), so imputation can be checked against the truth.
package simulate

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"cimpute/domain/core"
	"cimpute/domain/quant"
	"cimpute/internal/groups"

	"github.com/xuri/excelize/v2"
)

// Dataset is a generated table. Headers and Rows are the formatted table; Complete holds
// the values before any dropout.
//
// Columns:
// - protein_id
// - gene_name
// - log2_lfq_<group>_<replicate> for every group and replicate
type Dataset struct {
	Headers []string
	Rows    [][]string // formatted strings, missing cells empty

	IDs      []core.EntityID
	Columns  []string
	Complete [][]float64
	Observed [][]float64 // NaN where dropped
	Groups   quant.GroupColumns
}

type Config struct {
	Proteins   int
	Groups     []string
	Replicates int
	Seed       int64

	// Abundance model on the log2 scale
	MeanIntensity float64
	SpreadSD      float64 // between proteins
	GroupSD       float64 // group effect per protein
	NoiseSD       float64 // replicate noise

	// Dropout model
	DetectionLimit float64 // values below are censored
	MCARRate       float64 // share of remaining cells dropped at random
}

func DefaultConfig() Config {
	return Config{
		Proteins:       500,
		Groups:         []string{"ctrl", "treat"},
		Replicates:     3,
		Seed:           42,
		MeanIntensity:  25,
		SpreadSD:       3,
		GroupSD:        1,
		NoiseSD:        0.3,
		DetectionLimit: 21,
		MCARRate:       0.05,
	}
}

const quantMarker = "log2_lfq"

func Generate(cfg Config) (*Dataset, error) {
	if cfg.Proteins <= 0 {
		return nil, core.NewInvalidConfigError("proteins", "must be > 0")
	}
	if cfg.Replicates <= 0 {
		return nil, core.NewInvalidConfigError("replicates", "must be > 0")
	}
	if len(cfg.Groups) == 0 {
		return nil, core.NewInvalidConfigError("groups", "no group labels given")
	}
	if cfg.MCARRate < 0 || cfg.MCARRate > 1 {
		return nil, core.NewInvalidConfigError("mcar_rate", fmt.Sprintf("%v outside [0,1]", cfg.MCARRate))
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	ds := &Dataset{
		IDs:      make([]core.EntityID, cfg.Proteins),
		Complete: make([][]float64, cfg.Proteins),
		Observed: make([][]float64, cfg.Proteins),
	}
	for _, g := range cfg.Groups {
		for r := 1; r <= cfg.Replicates; r++ {
			ds.Columns = append(ds.Columns, fmt.Sprintf("%s_%s_%d", quantMarker, g, r))
		}
	}

	mapping, err := groups.Resolve(ds.Columns, cfg.Groups, quantMarker)
	if err != nil {
		return nil, err
	}
	ds.Groups = mapping

	for p := 0; p < cfg.Proteins; p++ {
		ds.IDs[p] = core.EntityID(fmt.Sprintf("P%05d", p+1))
		base := cfg.MeanIntensity + rng.NormFloat64()*cfg.SpreadSD

		complete := make([]float64, 0, len(ds.Columns))
		for range cfg.Groups {
			level := base + rng.NormFloat64()*cfg.GroupSD
			for r := 0; r < cfg.Replicates; r++ {
				complete = append(complete, level+rng.NormFloat64()*cfg.NoiseSD)
			}
		}

		observed := make([]float64, len(complete))
		for i, v := range complete {
			switch {
			case v < cfg.DetectionLimit:
				observed[i] = quant.Missing
			case rng.Float64() < cfg.MCARRate:
				observed[i] = quant.Missing
			default:
				observed[i] = v
			}
		}
		ds.Complete[p] = complete
		ds.Observed[p] = observed
	}

	ds.Headers = append([]string{"protein_id", "gene_name"}, ds.Columns...)
	ds.Rows = make([][]string, cfg.Proteins)
	for p := range ds.Rows {
		row := make([]string, 0, len(ds.Headers))
		row = append(row, ds.IDs[p].String(), fmt.Sprintf("GENE%d", p+1))
		for _, v := range ds.Observed[p] {
			row = append(row, fToStr(v, 4))
		}
		ds.Rows[p] = row
	}
	return ds, nil
}

// Matrix returns the observed values as a quantification matrix
func (ds *Dataset) Matrix() (*quant.Matrix, error) {
	data := make([][]float64, len(ds.Observed))
	for i, row := range ds.Observed {
		data[i] = append([]float64(nil), row...)
	}
	return quant.NewMatrix(append([]core.EntityID(nil), ds.IDs...), append([]string(nil), ds.Columns...), data)
}

// MissingFraction is the share of dropped cells
func (ds *Dataset) MissingFraction() float64 {
	missing, cells := 0, 0
	for _, row := range ds.Observed {
		missing += quant.CountMissing(row)
		cells += len(row)
	}
	if cells == 0 {
		return 0
	}
	return float64(missing) / float64(cells)
}

func WriteCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Headers); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteXLSX(path string, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"

	// Header row
	for i, h := range ds.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	// Data rows: numbers stay numeric, missing cells stay empty
	for p := range ds.Rows {
		rowIdx := p + 2
		for c, v := range ds.Rows[p][:2] {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		for j, v := range ds.Observed[p] {
			if quant.IsMissing(v) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+3, rowIdx)
			if err := f.SetCellValue(sheet, cell, round(v, 4)); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}

func fToStr(x float64, decimals int) string {
	if quant.IsMissing(x) {
		return ""
	}
	return strconv.FormatFloat(round(x, decimals), 'f', decimals, 64)
}
