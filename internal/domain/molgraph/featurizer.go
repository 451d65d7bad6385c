package molgraph

import (
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// DefaultMaxLength is the default index of the last encoded atom.  Encodings
// produced with it have 11 nodes.
const DefaultMaxLength = 10

// FeaturizeOption customises Featurize.
type FeaturizeOption func(*featurizeOptions)

type featurizeOptions struct {
	pad bool
}

// WithPadding lets molecules with fewer than maxLength+1 atoms encode by
// filling the missing positions with atomic number 0 and no bonds.  Without
// it such molecules are rejected.
func WithPadding() FeaturizeOption {
	return func(o *featurizeOptions) { o.pad = true }
}

// Featurize encodes the first maxLength+1 atoms of m.
//
// nodes[i] is the atomic number of atom i.  edges[i][j] is 0 when atoms i and
// j are not bonded and the bond code otherwise; the matrix is symmetric with a
// zero diagonal.  Atoms beyond index maxLength are ignored.
//
// Errors:
//   - ErrCodeInvalidMaxLength when maxLength < 0
//   - ErrCodeMoleculeTooSmall when m has fewer than maxLength+1 atoms and
//     padding is off
//   - ErrCodeBondTypeUnsupported when a bond inside the window has no code
func Featurize(m Molecule, maxLength int, opts ...FeaturizeOption) ([]int, [][]int, error) {
	var o featurizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if maxLength < 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidMaxLength, "max length must not be negative").
			WithDetailf("max_length=%d", maxLength)
	}
	if m == nil {
		return nil, nil, errors.New(errors.ErrCodeAtomInvalid, "molecule is nil")
	}

	dim := maxLength + 1
	have := m.NumAtoms()
	if have < dim && !o.pad {
		return nil, nil, errors.New(errors.ErrCodeMoleculeTooSmall, "molecule has fewer atoms than the encoding requires").
			WithDetailf("atoms=%d required=%d", have, dim)
	}
	present := dim
	if have < present {
		present = have
	}

	nodes := make([]int, dim)
	edges := make([][]int, dim)
	for i := range edges {
		edges[i] = make([]int, dim)
	}

	for i := 0; i < present; i++ {
		nodes[i] = m.Atom(i).AtomicNum()
		// BondBetween is symmetric, so the upper triangle is mirrored.
		for j := i + 1; j < present; j++ {
			b, ok := m.BondBetween(i, j)
			if !ok || b == nil {
				continue
			}
			code, err := EncodeBond(b.BondType())
			if err != nil {
				return nil, nil, errors.Wrap(err, errors.ErrCodeBondTypeUnsupported, "bond type not encodable").
					WithDetailf("begin=%d end=%d type=%s", i, j, b.BondType())
			}
			edges[i][j] = code
			edges[j][i] = code
		}
	}
	return nodes, edges, nil
}

// FeaturizeGraph is Featurize returning an EncodedGraph.
func FeaturizeGraph(m Molecule, maxLength int, opts ...FeaturizeOption) (*EncodedGraph, error) {
	nodes, edges, err := Featurize(m, maxLength, opts...)
	if err != nil {
		return nil, err
	}
	return &EncodedGraph{MaxLength: maxLength, Nodes: nodes, Edges: edges}, nil
}

// FeaturizeSMILES parses smiles and encodes the result.
func FeaturizeSMILES(smiles string, maxLength int, opts ...FeaturizeOption) (*EncodedGraph, error) {
	m, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return FeaturizeGraph(m, maxLength, opts...)
}

//Personal.AI order the ending
