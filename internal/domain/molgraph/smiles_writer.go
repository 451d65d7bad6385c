package molgraph

import (
	"sort"
	"strconv"
	"strings"
)

var bondSymbolOut = map[BondType]string{
	BondSingle:    "-",
	BondDouble:    "=",
	BondTriple:    "#",
	BondQuadruple: "$",
	BondAromatic:  ":",
	BondZero:      "~",
	BondDative:    "-",
}

type smilesWriter struct {
	atoms    []MolAtom
	adj      [][]int
	bonds    map[pairKey]BondType
	order    []int
	seq      []int
	children [][]int
	closures [][]int
	digits   map[pairKey]int
	inUse    map[int]bool
	sb       strings.Builder
}

// WriteSMILES writes m as a non-canonical SMILES string.
//
// Atoms are visited depth first from the lowest unvisited index; each
// connected component is separated by '.'.  Ring bonds use the lowest free
// closure digit (%nn above 9).  Aromatic atoms whose element has an aromatic
// form are written lowercase.  Charged atoms, atoms with an explicit hydrogen
// count and elements outside the organic subset are bracketed.  Bond symbols
// are written only where the implicit bond would differ.
//
// For a Molecule other than *Mol only atomic numbers and bond types are
// known, so atoms are written neutral with implicit hydrogens.  Dative bonds
// are written as single bonds.
func WriteSMILES(m Molecule) string {
	s, _ := writeSMILES(m)
	return s
}

// writeSMILES also returns the written atom order: out[k] is the index in m
// of the k-th atom in the string.
func writeSMILES(m Molecule) (string, []int) {
	if m == nil || m.NumAtoms() == 0 {
		return "", nil
	}
	w := newSMILESWriter(m)
	n := len(w.atoms)
	for start := 0; start < n; start++ {
		if w.order[start] >= 0 {
			continue
		}
		if w.sb.Len() > 0 {
			w.sb.WriteByte('.')
		}
		w.plan(start, -1)
		w.emit(start)
	}
	return w.sb.String(), w.seq
}

func newSMILESWriter(m Molecule) *smilesWriter {
	n := m.NumAtoms()
	w := &smilesWriter{
		atoms:    make([]MolAtom, n),
		adj:      make([][]int, n),
		bonds:    make(map[pairKey]BondType),
		order:    make([]int, n),
		children: make([][]int, n),
		closures: make([][]int, n),
		digits:   make(map[pairKey]int),
		inUse:    make(map[int]bool),
	}
	for i := 0; i < n; i++ {
		w.order[i] = -1
		if a, ok := m.Atom(i).(MolAtom); ok {
			w.atoms[i] = a
		} else {
			w.atoms[i] = MolAtom{Number: m.Atom(i).AtomicNum(), HCount: ImplicitH}
		}
	}

	if mol, ok := m.(*Mol); ok {
		for _, b := range mol.bonds {
			w.addEdge(b.Begin, b.End, b.Type)
		}
	} else {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if b, ok := m.BondBetween(i, j); ok && b != nil {
					w.addEdge(i, j, b.BondType())
				}
			}
		}
	}
	for i := range w.adj {
		sort.Ints(w.adj[i])
	}
	return w
}

func (w *smilesWriter) addEdge(a, b int, t BondType) {
	w.bonds[newPairKey(a, b)] = t
	w.adj[a] = append(w.adj[a], b)
	w.adj[b] = append(w.adj[b], a)
}

// plan assigns the visit order, the spanning-tree children and the ring
// closures of one component.
func (w *smilesWriter) plan(u, parent int) {
	w.order[u] = len(w.seq)
	w.seq = append(w.seq, u)
	for _, v := range w.adj[u] {
		if v == parent {
			continue
		}
		if w.order[v] < 0 {
			w.children[u] = append(w.children[u], v)
			w.plan(v, u)
			continue
		}
		if w.order[v] < w.order[u] {
			w.closures[u] = append(w.closures[u], v)
			w.closures[v] = append(w.closures[v], u)
		}
	}
}

func (w *smilesWriter) emit(u int) {
	w.writeAtom(u)

	ring := w.closures[u]
	sort.Slice(ring, func(i, j int) bool { return w.order[ring[i]] < w.order[ring[j]] })
	var release []int
	for _, v := range ring {
		key := newPairKey(u, v)
		if w.order[v] < w.order[u] {
			d := w.digits[key]
			w.writeDigit(d)
			release = append(release, d)
			continue
		}
		d := w.allocDigit()
		w.digits[key] = d
		w.writeBond(u, v)
		w.writeDigit(d)
	}
	for _, d := range release {
		delete(w.inUse, d)
	}

	kids := w.children[u]
	for i, v := range kids {
		branch := i < len(kids)-1
		if branch {
			w.sb.WriteByte('(')
		}
		w.writeBond(u, v)
		w.emit(v)
		if branch {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; ; d++ {
		if !w.inUse[d] {
			w.inUse[d] = true
			return d
		}
	}
}

func (w *smilesWriter) writeDigit(d int) {
	if d < 10 {
		w.sb.WriteByte(byte('0' + d))
		return
	}
	w.sb.WriteByte('%')
	w.sb.WriteString(strconv.Itoa(d))
}

func (w *smilesWriter) writtenAromatic(i int) bool {
	a := w.atoms[i]
	return a.Aromatic && aromaticBracket[a.Number]
}

func (w *smilesWriter) writeBond(a, b int) {
	t := w.bonds[newPairKey(a, b)]
	both := w.writtenAromatic(a) && w.writtenAromatic(b)
	if (t == BondSingle && !both) || (t == BondAromatic && both) {
		return
	}
	if s, ok := bondSymbolOut[t]; ok {
		w.sb.WriteString(s)
		return
	}
	w.sb.WriteByte('~')
}

func (w *smilesWriter) writeAtom(i int) {
	a := w.atoms[i]
	sym, ok := ElementSymbol(a.Number)
	if !ok {
		sym = "*"
	}
	arom := w.writtenAromatic(i)
	if arom {
		sym = strings.ToLower(sym)
	}

	bare := a.Charge == 0 && a.HCount == ImplicitH && organicSubset[a.Number] &&
		(!arom || aromaticBare[a.Number])
	if bare {
		w.sb.WriteString(sym)
		return
	}

	w.sb.WriteByte('[')
	w.sb.WriteString(sym)
	if a.HCount > 0 {
		w.sb.WriteByte('H')
		if a.HCount > 1 {
			w.sb.WriteString(strconv.Itoa(a.HCount))
		}
	}
	switch {
	case a.Charge > 0:
		w.sb.WriteByte('+')
		if a.Charge > 1 {
			w.sb.WriteString(strconv.Itoa(a.Charge))
		}
	case a.Charge < 0:
		w.sb.WriteByte('-')
		if a.Charge < -1 {
			w.sb.WriteString(strconv.Itoa(-a.Charge))
		}
	}
	w.sb.WriteByte(']')
}

//Personal.AI order the ending
