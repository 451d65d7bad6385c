// Package molgraph is the molecule-graph codec at the centre of MolGraph-Codec.
//
// A molecule is encoded as a node list of atomic numbers plus a square edge
// matrix of bond codes, both of dimension MaxLength+1.  Bond categories map to
// the codes 1..5 through one canonical table; 0 means "no bond".  The package
// owns a small editable molecule (Mol), a SMILES reader and writer, and the
// repository ports used by the application layer.
package molgraph

import (
	"fmt"
	"strings"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// BondType is the chemical category of a bond.
type BondType int

const (
	BondUnspecified BondType = iota
	BondSingle
	BondDouble
	BondTriple
	BondAromatic
	// BondZero is a zero-order bond: the atoms are associated but share no
	// electrons (metal coordination, ionic contacts).
	BondZero
	BondQuadruple
	BondDative
)

var bondTypeNames = map[BondType]string{
	BondUnspecified: "unspecified",
	BondSingle:      "single",
	BondDouble:      "double",
	BondTriple:      "triple",
	BondAromatic:    "aromatic",
	BondZero:        "zero",
	BondQuadruple:   "quadruple",
	BondDative:      "dative",
}

// String returns the lower-case name of t.
func (t BondType) String() string {
	if s, ok := bondTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("BondType(%d)", int(t))
}

// ParseBondType is the inverse of String.
func ParseBondType(s string) (BondType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, name := range bondTypeNames {
		if name == want {
			return t, nil
		}
	}
	return BondUnspecified, errors.New(errors.ErrCodeBondInvalid, "unknown bond type").WithDetail(s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bond-category codec
// ─────────────────────────────────────────────────────────────────────────────

// NoBond is the edge-matrix value for an absent bond.
const NoBond = 0

// bondTable is the canonical ordering of encodable bond categories.  Code k
// (1-based) is bondTable[k-1].  Encoding and decoding both derive from it.
var bondTable = [...]BondType{
	BondSingle,
	BondDouble,
	BondTriple,
	BondAromatic,
	BondZero,
}

// NumBondCodes is the number of encodable bond categories.
const NumBondCodes = len(bondTable)

// MaxBondCode is the largest valid edge-matrix value.
const MaxBondCode = NumBondCodes

// BondTypes returns a copy of the canonical table in code order.
func BondTypes() []BondType {
	out := make([]BondType, NumBondCodes)
	copy(out, bondTable[:])
	return out
}

// EncodeBond returns the code for t.  Categories outside the table yield
// ErrCodeBondTypeUnsupported.
func EncodeBond(t BondType) (int, error) {
	for i, bt := range bondTable {
		if bt == t {
			return i + 1, nil
		}
	}
	return NoBond, errors.New(errors.ErrCodeBondTypeUnsupported, "bond type not encodable").
		WithDetailf("type=%s", t)
}

// DecodeBond returns the category for code.  Codes outside 1..NumBondCodes
// yield ErrCodeBondCodeInvalid.
func DecodeBond(code int) (BondType, error) {
	if code < 1 || code > NumBondCodes {
		return BondUnspecified, errors.New(errors.ErrCodeBondCodeInvalid, "bond code outside 1..5").
			WithDetailf("code=%d", code)
	}
	return bondTable[code-1], nil
}

// IsEncodable reports whether t has a code.
func IsEncodable(t BondType) bool {
	_, err := EncodeBond(t)
	return err == nil
}

// BondOrder returns the conventional bond order, with 1.5 for aromatic and 0
// for zero-order or unspecified bonds.
func BondOrder(t BondType) float64 {
	switch t {
	case BondSingle, BondDative:
		return 1
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	case BondAromatic:
		return 1.5
	default:
		return 0
	}
}

//Personal.AI order the ending
