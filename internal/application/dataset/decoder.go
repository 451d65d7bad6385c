package dataset

import (
	"context"
	"math"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// DecodedMolecule is one generator sample turned back into a molecule.
type DecodedMolecule struct {
	Index        int    `json:"index"`
	SMILES       string `json:"smiles,omitempty"`
	Formula      string `json:"formula,omitempty"`
	NumAtoms     int    `json:"num_atoms"`
	NumBonds     int    `json:"num_bonds"`
	DroppedEdges int    `json:"dropped_edges"`
	Valid        bool   `json:"valid"`
	Error        string `json:"error,omitempty"`
}

// DecodeReport summarises a decoded batch.
type DecodeReport struct {
	Molecules  []DecodedMolecule `json:"molecules"`
	Valid      int               `json:"valid"`
	Unique     int               `json:"unique"`
	Validity   float64           `json:"validity"`
	Uniqueness float64           `json:"uniqueness"`
}

// Decoder converts flattened generator output into molecules.
type Decoder struct {
	maxLength int
	strict    bool
	logger    logging.Logger
}

// NewDecoder creates a Decoder for samples of maxLength+1 nodes.  strict
// rejects samples whose rounded edge values fall outside the bond table
// instead of dropping them.
func NewDecoder(maxLength int, strict bool, logger logging.Logger) *Decoder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Decoder{maxLength: maxLength, strict: strict, logger: logger.Named("decoder")}
}

// DecodeTensors decodes each (nodes[i], edges[i]) pair.  Values are rounded,
// trailing padding atoms are trimmed and the edge matrix is read through the
// lenient policy unless the decoder is strict.  A sample is valid when it has
// at least one atom, no dummy atom and its SMILES parses back.  Uniqueness is
// the share of distinct SMILES among valid samples.
func (d *Decoder) DecodeTensors(ctx context.Context, nodes, edges [][]float32) (*DecodeReport, error) {
	if d.maxLength < 0 {
		return nil, errors.New(errors.ErrCodeInvalidMaxLength, "max length must not be negative")
	}
	if len(nodes) != len(edges) {
		return nil, errors.New(errors.ErrCodeTensorShapeMismatch, "node and edge batch sizes differ").
			WithDetailf("nodes=%d edges=%d", len(nodes), len(edges))
	}
	dim := d.maxLength + 1

	report := &DecodeReport{Molecules: make([]DecodedMolecule, len(nodes))}
	seen := make(map[string]struct{})
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "decoding interrupted")
		}
		if len(nodes[i]) != dim {
			return nil, errors.New(errors.ErrCodeTensorShapeMismatch, "node tensor shape does not match max length").
				WithDetailf("sample=%d len=%d dim=%d", i, len(nodes[i]), dim)
		}
		matrix, err := molgraph.ReshapeEdges(edges[i], dim)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "edge tensor shape does not match max length").
				WithDetailf("sample=%d", i)
		}

		dm := d.decodeOne(i, nodes[i], matrix)
		if dm.Valid {
			report.Valid++
			if _, dup := seen[dm.SMILES]; !dup {
				seen[dm.SMILES] = struct{}{}
				report.Unique++
			}
		}
		report.Molecules[i] = dm
	}

	if len(nodes) > 0 {
		report.Validity = float64(report.Valid) / float64(len(nodes))
	}
	if report.Valid > 0 {
		report.Uniqueness = float64(report.Unique) / float64(report.Valid)
	}
	d.logger.Debug("generator output decoded",
		logging.Int("samples", len(nodes)),
		logging.Int("valid", report.Valid),
		logging.Int("unique", report.Unique),
	)
	return report, nil
}

func (d *Decoder) decodeOne(index int, nodes []float32, edges [][]float32) DecodedMolecule {
	dm := DecodedMolecule{Index: index}
	opts := []molgraph.DefeaturizeOption{
		molgraph.WithRounding(),
		molgraph.WithTrimPadding(),
		molgraph.WithDropObserver(func(int, int, float64) { dm.DroppedEdges++ }),
	}
	if d.strict {
		// Strict checking applies to the raw matrix, so round it first.
		edges = roundMatrix(edges)
		opts = append(opts, molgraph.WithStrict())
	}

	m, err := molgraph.Defeaturize(nodes, edges, opts...)
	if err != nil {
		dm.Error = err.Error()
		return dm
	}
	dm.NumAtoms = m.NumAtoms()
	dm.NumBonds = m.NumBonds()
	if m.NumAtoms() == 0 {
		dm.Error = "empty molecule"
		return dm
	}
	dm.SMILES = molgraph.WriteSMILES(m)
	dm.Formula = m.Formula()
	for _, a := range m.Atoms() {
		if a.Number == 0 {
			dm.Error = "dummy atom in molecule"
			return dm
		}
	}
	if _, err := molgraph.ParseSMILES(dm.SMILES); err != nil {
		dm.Error = err.Error()
		return dm
	}
	dm.Valid = true
	return dm
}

func roundMatrix(in [][]float32) [][]float32 {
	out := make([][]float32, len(in))
	for i, row := range in {
		out[i] = make([]float32, len(row))
		for j, v := range row {
			out[i][j] = float32(math.Round(float64(v)))
		}
	}
	return out
}

//Personal.AI order the ending
