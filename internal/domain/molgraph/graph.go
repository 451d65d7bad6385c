package molgraph

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// EncodedGraph is the fixed-size encoding of a molecule.
type EncodedGraph struct {
	MaxLength int     `json:"max_length" msgpack:"max_length"`
	Nodes     []int   `json:"nodes" msgpack:"nodes"`
	Edges     [][]int `json:"edges" msgpack:"edges"`
}

// Dim is the node count, MaxLength+1.
func (g *EncodedGraph) Dim() int { return g.MaxLength + 1 }

// Validate checks the invariants every featurizer output satisfies: the
// declared dimension, non-negative atomic numbers, codes in 0..5, a zero
// diagonal and symmetry.
func (g *EncodedGraph) Validate() error {
	if g.MaxLength < 0 {
		return errors.New(errors.ErrCodeInvalidMaxLength, "max length must not be negative").
			WithDetailf("max_length=%d", g.MaxLength)
	}
	dim := g.Dim()
	if len(g.Nodes) != dim || len(g.Edges) != dim {
		return errors.New(errors.ErrCodeGraphShapeMismatch, "node list and edge matrix shapes disagree").
			WithDetailf("dim=%d nodes=%d rows=%d", dim, len(g.Nodes), len(g.Edges))
	}
	for i, n := range g.Nodes {
		if n < 0 || n > MaxAtomicNumber {
			return errors.New(errors.ErrCodeAtomInvalid, "atomic number outside element table").
				WithDetailf("node=%d value=%d", i, n)
		}
	}
	for i, row := range g.Edges {
		if len(row) != dim {
			return errors.New(errors.ErrCodeGraphShapeMismatch, "edge matrix is not square").
				WithDetailf("row=%d len=%d want=%d", i, len(row), dim)
		}
	}
	for i := 0; i < dim; i++ {
		if g.Edges[i][i] != NoBond {
			return errors.New(errors.ErrCodeEdgeValueInvalid, "diagonal must be zero").WithDetailf("index=%d", i)
		}
		for j := i + 1; j < dim; j++ {
			v := g.Edges[i][j]
			if v < 0 || v > MaxBondCode {
				return errors.New(errors.ErrCodeBondCodeInvalid, "bond code outside 1..5").
					WithDetailf("a=%d b=%d code=%d", i, j, v)
			}
			if g.Edges[j][i] != v {
				return errors.New(errors.ErrCodeEdgeValueInvalid, "edge matrix is not symmetric").
					WithDetailf("a=%d b=%d", i, j)
			}
		}
	}
	return nil
}

// IsSymmetric reports whether Edges equals its transpose.  Ragged matrices
// are not symmetric.
func (g *EncodedGraph) IsSymmetric() bool {
	n := len(g.Edges)
	for i := range g.Edges {
		if len(g.Edges[i]) != n {
			return false
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.Edges[i][j] != g.Edges[j][i] {
				return false
			}
		}
	}
	return true
}

// BondCount counts non-zero upper-triangle entries.
func (g *EncodedGraph) BondCount() int {
	count := 0
	for i, row := range g.Edges {
		for j := i + 1; j < len(row); j++ {
			if row[j] != NoBond {
				count++
			}
		}
	}
	return count
}

// AtomCount counts nodes with a non-zero atomic number.
func (g *EncodedGraph) AtomCount() int {
	count := 0
	for _, n := range g.Nodes {
		if n != 0 {
			count++
		}
	}
	return count
}

// Tensor flattens the graph into the float32 shapes consumed by the
// discriminator: nodes (N) and row-major edges (N*N).
func (g *EncodedGraph) Tensor() (nodes []float32, edges []float32) {
	dim := len(g.Nodes)
	nodes = make([]float32, dim)
	for i, n := range g.Nodes {
		nodes[i] = float32(n)
	}
	edges = make([]float32, 0, dim*dim)
	for _, row := range g.Edges {
		for _, v := range row {
			edges = append(edges, float32(v))
		}
	}
	return nodes, edges
}

// Clone returns a deep copy of g.
func (g *EncodedGraph) Clone() *EncodedGraph {
	c := &EncodedGraph{MaxLength: g.MaxLength, Nodes: append([]int(nil), g.Nodes...)}
	c.Edges = make([][]int, len(g.Edges))
	for i, row := range g.Edges {
		c.Edges[i] = append([]int(nil), row...)
	}
	return c
}

// ReshapeEdges turns a row-major flat edge tensor into a dim×dim matrix.
func ReshapeEdges[T Number](flat []T, dim int) ([][]T, error) {
	if dim < 0 || len(flat) != dim*dim {
		return nil, errors.New(errors.ErrCodeTensorShapeMismatch, "tensor shape does not match max length").
			WithDetailf("len=%d dim=%d", len(flat), dim)
	}
	out := make([][]T, dim)
	for i := range out {
		out[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out, nil
}

// GraphFromTensor rounds flattened float tensors into an EncodedGraph.  The
// values are not range-checked; use Validate or the lenient de-featurizer.
func GraphFromTensor(maxLength int, nodes, edges []float32) (*EncodedGraph, error) {
	dim := maxLength + 1
	if maxLength < 0 || len(nodes) != dim {
		return nil, errors.New(errors.ErrCodeTensorShapeMismatch, "tensor shape does not match max length").
			WithDetailf("nodes=%d dim=%d", len(nodes), dim)
	}
	matrix, err := ReshapeEdges(edges, dim)
	if err != nil {
		return nil, err
	}
	g := &EncodedGraph{MaxLength: maxLength, Nodes: make([]int, dim), Edges: make([][]int, dim)}
	for i, v := range nodes {
		g.Nodes[i] = roundToInt(v)
	}
	for i, row := range matrix {
		g.Edges[i] = make([]int, dim)
		for j, v := range row {
			g.Edges[i][j] = roundToInt(v)
		}
	}
	return g, nil
}

func roundToInt(v float32) int {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

// ─────────────────────────────────────────────────────────────────────────────
// GraphRecord
// ─────────────────────────────────────────────────────────────────────────────

// GraphRecord is a persisted encoding.
type GraphRecord struct {
	ID        uuid.UUID     `json:"id"`
	SMILES    string        `json:"smiles"`
	Graph     *EncodedGraph `json:"graph"`
	NumAtoms  int           `json:"num_atoms"`
	NumBonds  int           `json:"num_bonds"`
	Padded    bool          `json:"padded"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewGraphRecord builds a record for g, which was produced from smiles.
// numAtoms is the atom count of the source molecule.
func NewGraphRecord(smiles string, g *EncodedGraph, numAtoms int) *GraphRecord {
	return &GraphRecord{
		ID:        uuid.New(),
		SMILES:    smiles,
		Graph:     g,
		NumAtoms:  numAtoms,
		NumBonds:  g.BondCount(),
		Padded:    numAtoms < g.Dim(),
		CreatedAt: time.Now().UTC(),
	}
}

//Personal.AI order the ending
