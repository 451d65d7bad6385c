package molgraph

import (
	"math"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// Number is the element type accepted by the de-featurizer.  Generator
// outputs arrive as float32 or float64; stored encodings as integers.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// DropObserver is told about every non-zero edge value the lenient policy
// turned into "no bond".  a < b always holds.
type DropObserver func(a, b int, v float64)

// DefeaturizeOption customises Defeaturize.
type DefeaturizeOption func(*defeaturizeOptions)

type defeaturizeOptions struct {
	strict      bool
	round       bool
	trimPadding bool
	onDrop      DropObserver
}

// WithStrict rejects any upper-triangle value that is not an integral 0..5,
// any non-zero diagonal value and any asymmetric matrix, with
// ErrCodeEdgeValueInvalid.
func WithStrict() DefeaturizeOption {
	return func(o *defeaturizeOptions) { o.strict = true }
}

// WithRounding rounds node and edge values to the nearest integer before they
// are interpreted.  Without it values are truncated toward zero.
func WithRounding() DefeaturizeOption {
	return func(o *defeaturizeOptions) { o.round = true }
}

// WithTrimPadding skips trailing atomic-number-0 atoms that carry no bond.
func WithTrimPadding() DefeaturizeOption {
	return func(o *defeaturizeOptions) { o.trimPadding = true }
}

// WithDropObserver registers fn to observe values dropped by the lenient
// policy.
func WithDropObserver(fn DropObserver) DefeaturizeOption {
	return func(o *defeaturizeOptions) { o.onDrop = fn }
}

// Defeaturize rebuilds a molecule from a node list and an edge matrix.
//
// One atom is added per node.  For every pair a < b the value edges[a][b] is
// decoded when it lies strictly between 0 and 6 and its integer part is a
// valid code; any other value means "no bond" (reported to the drop observer
// when non-zero).  Only the upper triangle is read.  The result is not
// sanitised: no valence, charge or aromaticity perception is applied.
//
// Errors:
//   - ErrCodeGraphShapeMismatch when edges is not len(nodes)×len(nodes)
//   - ErrCodeAtomInvalid for negative, non-finite or out-of-table atomic numbers
//   - ErrCodeEdgeValueInvalid for rejected values in strict mode
func Defeaturize[T Number](nodes []T, edges [][]T, opts ...DefeaturizeOption) (*Mol, error) {
	m := NewMol()
	if err := DefeaturizeInto(m, nodes, edges, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// DefeaturizeGraph is Defeaturize over an EncodedGraph.
func DefeaturizeGraph(g *EncodedGraph, opts ...DefeaturizeOption) (*Mol, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeGraphShapeMismatch, "graph is nil")
	}
	return Defeaturize(g.Nodes, g.Edges, opts...)
}

// DefeaturizeInto is Defeaturize writing into an arbitrary Builder.  On error
// the builder may hold a partial molecule.
func DefeaturizeInto[T Number](b Builder, nodes []T, edges [][]T, opts ...DefeaturizeOption) error {
	var o defeaturizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	n := len(nodes)
	if len(edges) != n {
		return errors.New(errors.ErrCodeGraphShapeMismatch, "node list and edge matrix shapes disagree").
			WithDetailf("nodes=%d rows=%d", n, len(edges))
	}
	for i, row := range edges {
		if len(row) != n {
			return errors.New(errors.ErrCodeGraphShapeMismatch, "edge matrix is not square").
				WithDetailf("row=%d len=%d want=%d", i, len(row), n)
		}
	}

	atomNums := make([]int, n)
	for i, v := range nodes {
		num, err := atomicNumberOf(float64(v), o.round)
		if err != nil {
			return err.WithDetailf("node=%d value=%v", i, float64(v))
		}
		atomNums[i] = num
	}

	if o.strict {
		if err := checkStrict(edges); err != nil {
			return err
		}
	}

	codes := make([][]int, n)
	for a := 0; a < n; a++ {
		codes[a] = make([]int, n)
		for c := a + 1; c < n; c++ {
			v := float64(edges[a][c])
			code, ok := bondCodeOf(v, o.round)
			if ok {
				codes[a][c] = code
				continue
			}
			if v != 0 && o.onDrop != nil {
				o.onDrop(a, c, v)
			}
		}
	}

	keep := n
	if o.trimPadding {
		for keep > 0 && atomNums[keep-1] == 0 && !hasBond(codes, keep-1) {
			keep--
		}
	}

	for i := 0; i < keep; i++ {
		b.AddAtom(atomNums[i])
	}
	for a := 0; a < keep; a++ {
		for c := a + 1; c < keep; c++ {
			code := codes[a][c]
			if code == NoBond {
				continue
			}
			bt, err := DecodeBond(code)
			if err != nil {
				return err
			}
			if err := b.AddBond(a, c, bt); err != nil {
				return errors.Wrap(err, errors.CodeUnknown, "failed to add decoded bond")
			}
		}
	}
	return nil
}

// bondCodeOf applies the lenient acceptance window (0, 6) and the integer
// cast.  ok is false for every value that yields no bond.
func bondCodeOf(v float64, round bool) (int, bool) {
	if math.IsNaN(v) || !(v > 0 && v < float64(MaxBondCode+1)) {
		return NoBond, false
	}
	var code int
	if round {
		code = int(math.Round(v))
	} else {
		code = int(v)
	}
	if code < 1 || code > MaxBondCode {
		return NoBond, false
	}
	return code, true
}

func atomicNumberOf(v float64, round bool) (int, *errors.AppError) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(errors.ErrCodeAtomInvalid, "atomic number is not finite")
	}
	if round {
		v = math.Round(v)
	}
	if v <= -1 {
		return 0, errors.New(errors.ErrCodeAtomInvalid, "atomic number is negative")
	}
	if v >= MaxAtomicNumber+1 {
		return 0, errors.New(errors.ErrCodeAtomInvalid, "atomic number exceeds element table")
	}
	return int(v), nil
}

func checkStrict[T Number](edges [][]T) error {
	for a := range edges {
		if edges[a][a] != 0 {
			return errors.New(errors.ErrCodeEdgeValueInvalid, "edge value rejected in strict mode").
				WithDetailf("diagonal=%d value=%v", a, float64(edges[a][a]))
		}
		for c := a + 1; c < len(edges); c++ {
			v := float64(edges[a][c])
			if v != math.Trunc(v) || v < 0 || v > float64(MaxBondCode) {
				return errors.New(errors.ErrCodeEdgeValueInvalid, "edge value rejected in strict mode").
					WithDetailf("a=%d b=%d value=%v", a, c, v)
			}
			if edges[c][a] != edges[a][c] {
				return errors.New(errors.ErrCodeEdgeValueInvalid, "edge matrix is not symmetric").
					WithDetailf("a=%d b=%d upper=%v lower=%v", a, c, v, float64(edges[c][a]))
			}
		}
	}
	return nil
}

func hasBond(codes [][]int, i int) bool {
	for j := range codes {
		if j < i && codes[j][i] != NoBond {
			return true
		}
		if j > i && codes[i][j] != NoBond {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
