package molgraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// bondSymbols maps SMILES bond characters to categories.  '/' and '\' carry
// double-bond stereo, which is not modelled, and read as single bonds.  '~'
// is read as a zero-order bond.
var bondSymbols = map[byte]BondType{
	'-':  BondSingle,
	'=':  BondDouble,
	'#':  BondTriple,
	'$':  BondQuadruple,
	':':  BondAromatic,
	'~':  BondZero,
	'/':  BondSingle,
	'\\': BondSingle,
}

type ringOpening struct {
	atom int
	bond BondType
	pos  int
}

type smilesParser struct {
	src      string
	pos      int
	mol      *Mol
	prev     int
	bond     BondType
	branches []int
	rings    map[int]ringOpening
}

// ParseSMILES reads a SMILES string into a Mol.
//
// Supported: the organic subset (B C N O P S F Cl Br I *, aromatic b c n o p
// s), bracket atoms with isotope, chirality and atom class accepted but not
// kept, hydrogen count and charge, all bond symbols, branches, ring closures
// (digits and %nn) and dot-separated fragments.  Atoms are numbered in the
// order they appear.  An implicit bond between two aromatic atoms is
// aromatic, otherwise single.
//
// Errors carry ErrCodeMoleculeInvalidSMILES with the offending position.
func ParseSMILES(s string) (*Mol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES").WithDetail("empty string")
	}
	p := &smilesParser{
		src:   s,
		mol:   NewMol(),
		prev:  -1,
		rings: make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

func (p *smilesParser) fail(pos int, format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES").
		WithDetailf("position %d: %s", pos, fmt.Sprintf(format, args...))
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail(p.pos, "branch opened before any atom")
			}
			if p.bond != BondUnspecified {
				return p.fail(p.pos, "bond symbol before branch")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++

		case c == ')':
			if len(p.branches) == 0 {
				return p.fail(p.pos, "unmatched ')'")
			}
			if p.bond != BondUnspecified {
				return p.fail(p.pos, "dangling bond symbol")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++

		case c == '.':
			if p.prev < 0 {
				return p.fail(p.pos, "empty fragment")
			}
			if p.bond != BondUnspecified {
				return p.fail(p.pos, "dangling bond symbol")
			}
			p.prev = -1
			p.pos++

		case isBondSymbol(c):
			if p.prev < 0 {
				return p.fail(p.pos, "bond symbol without preceding atom")
			}
			if p.bond != BondUnspecified {
				return p.fail(p.pos, "consecutive bond symbols")
			}
			p.bond = bondSymbols[c]
			p.pos++

		case c >= '0' && c <= '9':
			if err := p.ring(int(c-'0'), p.pos); err != nil {
				return err
			}
			p.pos++

		case c == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.fail(p.pos, "'%%' must be followed by two digits")
			}
			num, _ := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
			if err := p.ring(num, p.pos); err != nil {
				return err
			}
			p.pos += 3

		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}

		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	if p.bond != BondUnspecified {
		return p.fail(len(p.src), "dangling bond symbol")
	}
	if len(p.branches) > 0 {
		return p.fail(len(p.src), "unclosed branch")
	}
	if len(p.rings) > 0 {
		first, firstNum := ringOpening{pos: len(p.src)}, 0
		for num, open := range p.rings {
			if open.pos < first.pos {
				first, firstNum = open, num
			}
		}
		return p.fail(first.pos, "unclosed ring %d", firstNum)
	}
	return nil
}

func (p *smilesParser) implicitBond(a, b int) BondType {
	if p.mol.atoms[a].Aromatic && p.mol.atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) addAtom(a MolAtom) {
	idx := p.mol.AddMolAtom(a)
	if p.prev >= 0 {
		bt := p.bond
		if bt == BondUnspecified {
			bt = p.implicitBond(p.prev, idx)
		}
		// idx is new, so the pair cannot already be bonded.
		_ = p.mol.AddBond(p.prev, idx, bt)
	}
	p.prev = idx
	p.bond = BondUnspecified
}

func (p *smilesParser) ring(num, at int) error {
	if p.prev < 0 {
		return p.fail(at, "ring bond without preceding atom")
	}
	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, bond: p.bond, pos: at}
		p.bond = BondUnspecified
		return nil
	}

	bt := p.bond
	if open.bond != BondUnspecified {
		if bt != BondUnspecified && bt != open.bond {
			return p.fail(at, "conflicting bond symbols on ring %d", num)
		}
		bt = open.bond
	}
	if open.atom == p.prev {
		return p.fail(at, "ring %d closes on its own atom", num)
	}
	if bt == BondUnspecified {
		bt = p.implicitBond(open.atom, p.prev)
	}
	if err := p.mol.AddBond(open.atom, p.prev, bt); err != nil {
		return p.fail(at, "ring %d duplicates an existing bond", num)
	}
	delete(p.rings, num)
	p.bond = BondUnspecified
	return nil
}

func (p *smilesParser) organicAtom() error {
	c := p.src[p.pos]
	atom := MolAtom{HCount: ImplicitH}
	width := 1

	switch {
	case c == '*':
		atom.Number = 0
	case c == 'C' && p.peek(1) == 'l':
		atom.Number, width = 17, 2
	case c == 'B' && p.peek(1) == 'r':
		atom.Number, width = 35, 2
	case strings.IndexByte("BCNOPSFI", c) >= 0:
		atom.Number, _ = AtomicNumber(string(c))
	case strings.IndexByte("bcnops", c) >= 0:
		atom.Number, _ = AtomicNumber(strings.ToUpper(string(c)))
		atom.Aromatic = true
	default:
		return p.fail(p.pos, "unexpected character %q", c)
	}

	p.pos += width
	p.addAtom(atom)
	return nil
}

func (p *smilesParser) peek(off int) byte {
	if p.pos+off < len(p.src) {
		return p.src[p.pos+off]
	}
	return 0
}

func (p *smilesParser) bracketAtom() error {
	start := p.pos
	end := strings.IndexByte(p.src[start:], ']')
	if end < 0 {
		return p.fail(start, "unclosed bracket atom")
	}
	atom, msg := parseBracketBody(p.src[start+1 : start+end])
	if msg != "" {
		return p.fail(start, "%s", msg)
	}
	p.pos = start + end + 1
	p.addAtom(atom)
	return nil
}

var aromaticBracketSymbols = map[string]bool{
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
	"se": true, "as": true, "te": true,
}

var chiralClasses = []string{"TH", "AL", "SP", "TB", "OH"}

// parseBracketBody reads "[isotope]symbol[chirality][hcount][charge][:class]".
// A non-empty message reports the first problem.
func parseBracketBody(body string) (MolAtom, string) {
	atom := MolAtom{}
	i := 0

	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i >= len(body) {
		return atom, "missing element symbol"
	}

	c := body[i]
	switch {
	case c == '*':
		atom.Number = 0
		i++
	case isUpper(c):
		if i+1 < len(body) && isLower(body[i+1]) {
			if n, ok := AtomicNumber(body[i : i+2]); ok {
				atom.Number = n
				i += 2
				break
			}
		}
		n, ok := AtomicNumber(body[i : i+1])
		if !ok {
			return atom, fmt.Sprintf("unknown element %q", body[i:i+1])
		}
		atom.Number = n
		i++
	case isLower(c):
		sym := body[i : i+1]
		if i+1 < len(body) && aromaticBracketSymbols[body[i:i+2]] {
			sym = body[i : i+2]
		}
		if !aromaticBracketSymbols[sym] {
			return atom, fmt.Sprintf("%q cannot be aromatic", sym)
		}
		atom.Number, _ = AtomicNumber(strings.ToUpper(sym[:1]) + sym[1:])
		atom.Aromatic = true
		i += len(sym)
	default:
		return atom, "missing element symbol"
	}

	if i < len(body) && body[i] == '@' {
		for i < len(body) && body[i] == '@' {
			i++
		}
		for _, cls := range chiralClasses {
			if strings.HasPrefix(body[i:], cls) {
				i += len(cls)
				for i < len(body) && isDigit(body[i]) {
					i++
				}
				break
			}
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		atom.HCount = 1
		if j := scanDigits(body, i); j > i {
			atom.HCount, _ = strconv.Atoi(body[i:j])
			i = j
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := body[i]
		i++
		magnitude := 1
		if j := scanDigits(body, i); j > i {
			magnitude, _ = strconv.Atoi(body[i:j])
			i = j
		} else {
			for i < len(body) && body[i] == sign {
				magnitude++
				i++
			}
		}
		if sign == '-' {
			magnitude = -magnitude
		}
		atom.Charge = magnitude
	}

	if i < len(body) && body[i] == ':' {
		j := scanDigits(body, i+1)
		if j == i+1 {
			return atom, "atom class needs digits"
		}
		i = j
	}

	if i != len(body) {
		return atom, fmt.Sprintf("unexpected %q in bracket atom", body[i:])
	}
	return atom, ""
}

func scanDigits(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

func isBondSymbol(c byte) bool {
	_, ok := bondSymbols[c]
	return ok
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

//Personal.AI order the ending
