package molgraph

import (
	"sort"
	"strconv"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Capability interfaces
// ─────────────────────────────────────────────────────────────────────────────

// Atom exposes what the codec reads from an atom.
type Atom interface {
	AtomicNum() int
}

// Bond exposes what the codec reads from a bond.
type Bond interface {
	BondType() BondType
}

// Molecule is the read side consumed by the featurizer.  Atoms are indexed
// 0..NumAtoms()-1.  BondBetween is symmetric in its arguments and reports
// false when the atoms are not bonded.
type Molecule interface {
	NumAtoms() int
	Atom(i int) Atom
	BondBetween(i, j int) (Bond, bool)
}

// Builder is the write side targeted by the de-featurizer.  AddAtom returns
// the index of the new atom.
type Builder interface {
	AddAtom(atomicNum int) int
	AddBond(a, b int, t BondType) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Mol
// ─────────────────────────────────────────────────────────────────────────────

// ImplicitH marks an atom whose hydrogen count is left to valence rules.
const ImplicitH = -1

// MolAtom is an atom of a Mol.
type MolAtom struct {
	Number   int  `json:"atomic_num"`
	Charge   int  `json:"charge,omitempty"`
	HCount   int  `json:"h_count"`
	Aromatic bool `json:"aromatic,omitempty"`
}

// AtomicNum implements Atom.
func (a MolAtom) AtomicNum() int { return a.Number }

// Symbol returns the element symbol, or "?" for an out-of-table number.
func (a MolAtom) Symbol() string {
	if s, ok := ElementSymbol(a.Number); ok {
		return s
	}
	return "?"
}

// MolBond is a bond of a Mol.  Begin < End always holds.
type MolBond struct {
	Begin int      `json:"begin"`
	End   int      `json:"end"`
	Type  BondType `json:"type"`
}

// BondType implements Bond.
func (b MolBond) BondType() BondType { return b.Type }

type pairKey struct{ a, b int }

func newPairKey(i, j int) pairKey {
	if i > j {
		i, j = j, i
	}
	return pairKey{a: i, b: j}
}

// Mol is an editable in-memory molecule.  It implements Molecule and Builder.
// Each unordered atom pair holds at most one bond.  A Mol is not safe for
// concurrent mutation.
type Mol struct {
	atoms []MolAtom
	bonds []MolBond
	index map[pairKey]int
	adj   [][]int
}

// NewMol returns an empty molecule.
func NewMol() *Mol {
	return &Mol{index: make(map[pairKey]int)}
}

// NumAtoms implements Molecule.
func (m *Mol) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Mol) NumBonds() int { return len(m.bonds) }

// Atom implements Molecule.  It panics when i is out of range, like a slice
// index.
func (m *Mol) Atom(i int) Atom { return m.atoms[i] }

// AtomAt returns the concrete atom at i.
func (m *Mol) AtomAt(i int) MolAtom { return m.atoms[i] }

// Atoms returns a copy of the atom list.
func (m *Mol) Atoms() []MolAtom {
	out := make([]MolAtom, len(m.atoms))
	copy(out, m.atoms)
	return out
}

// Bonds returns a copy of the bond list in insertion order.
func (m *Mol) Bonds() []MolBond {
	out := make([]MolBond, len(m.bonds))
	copy(out, m.bonds)
	return out
}

// BondBetween implements Molecule.
func (m *Mol) BondBetween(i, j int) (Bond, bool) {
	b, ok := m.bondBetween(i, j)
	if !ok {
		return nil, false
	}
	return b, true
}

func (m *Mol) bondBetween(i, j int) (MolBond, bool) {
	if i == j {
		return MolBond{}, false
	}
	idx, ok := m.index[newPairKey(i, j)]
	if !ok {
		return MolBond{}, false
	}
	return m.bonds[idx], true
}

// Neighbors returns the atoms bonded to i in ascending order.
func (m *Mol) Neighbors(i int) []int {
	if i < 0 || i >= len(m.adj) {
		return nil
	}
	out := make([]int, len(m.adj[i]))
	copy(out, m.adj[i])
	sort.Ints(out)
	return out
}

// AddAtom implements Builder.  The atom has no charge and implicit hydrogens.
func (m *Mol) AddAtom(atomicNum int) int {
	return m.AddMolAtom(MolAtom{Number: atomicNum, HCount: ImplicitH})
}

// AddMolAtom appends a fully specified atom.
func (m *Mol) AddMolAtom(a MolAtom) int {
	m.atoms = append(m.atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.atoms) - 1
}

// AddBond implements Builder.  It rejects out-of-range indices, self bonds,
// duplicate pairs and BondUnspecified.
func (m *Mol) AddBond(a, b int, t BondType) error {
	n := len(m.atoms)
	if a < 0 || a >= n || b < 0 || b >= n {
		return errors.New(errors.ErrCodeAtomIndexOutOfRange, "bond endpoint out of range").
			WithDetailf("begin=%d end=%d atoms=%d", a, b, n)
	}
	if a == b {
		return errors.New(errors.ErrCodeBondInvalid, "self bond").WithDetailf("atom=%d", a)
	}
	if t == BondUnspecified {
		return errors.New(errors.ErrCodeBondInvalid, "bond type is unspecified").
			WithDetailf("begin=%d end=%d", a, b)
	}
	key := newPairKey(a, b)
	if _, dup := m.index[key]; dup {
		return errors.New(errors.ErrCodeBondInvalid, "atoms already bonded").
			WithDetailf("begin=%d end=%d", key.a, key.b)
	}
	m.index[key] = len(m.bonds)
	m.bonds = append(m.bonds, MolBond{Begin: key.a, End: key.b, Type: t})
	m.adj[a] = append(m.adj[a], b)
	m.adj[b] = append(m.adj[b], a)
	return nil
}

// SetAromatic sets the aromatic flag of atom i.
func (m *Mol) SetAromatic(i int, aromatic bool) {
	m.atoms[i].Aromatic = aromatic
}

// Clone returns a deep copy of m.
func (m *Mol) Clone() *Mol {
	c := NewMol()
	c.atoms = m.Atoms()
	c.bonds = m.Bonds()
	c.adj = make([][]int, len(m.adj))
	for i, nb := range m.adj {
		c.adj[i] = append([]int(nil), nb...)
	}
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}

// Formula returns the Hill-order element counts of heavy and explicit atoms,
// e.g. "C2O" for ethanol without hydrogens.
func (m *Mol) Formula() string {
	counts := make(map[string]int)
	for _, a := range m.atoms {
		counts[a.Symbol()]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if k != "C" && k != "H" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var out []byte
	write := func(sym string) {
		n, ok := counts[sym]
		if !ok {
			return
		}
		out = append(out, sym...)
		if n > 1 {
			out = append(out, strconv.Itoa(n)...)
		}
	}
	if _, hasC := counts["C"]; hasC {
		write("C")
		write("H")
	} else {
		keys = append(keys, "H")
		sort.Strings(keys)
	}
	for _, k := range keys {
		write(k)
	}
	return string(out)
}

// compile-time checks
var (
	_ Molecule = (*Mol)(nil)
	_ Builder  = (*Mol)(nil)
)

//Personal.AI order the ending
