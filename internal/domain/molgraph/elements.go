package molgraph

// MaxAtomicNumber is the heaviest element with a symbol (oganesson).
const MaxAtomicNumber = 118

// elementSymbols is indexed by atomic number; index 0 is the wildcard atom.
var elementSymbols = [MaxAtomicNumber + 1]string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba",
	"La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra",
	"Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
	"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn",
	"Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for n, sym := range elementSymbols {
		m[sym] = n
	}
	return m
}()

// ElementSymbol returns the symbol for atomic number n.
func ElementSymbol(n int) (string, bool) {
	if n < 0 || n > MaxAtomicNumber {
		return "", false
	}
	return elementSymbols[n], true
}

// AtomicNumber returns the atomic number for a capitalised element symbol.
// "*" maps to 0.
func AtomicNumber(symbol string) (int, bool) {
	n, ok := atomicNumbers[symbol]
	return n, ok
}

// organic subset atoms may be written without brackets.
var organicSubset = map[int]bool{
	0: true, 5: true, 6: true, 7: true, 8: true, 9: true,
	15: true, 16: true, 17: true, 35: true, 53: true,
}

// aromaticBare are the elements with a bare lowercase aromatic form.
var aromaticBare = map[int]bool{5: true, 6: true, 7: true, 8: true, 15: true, 16: true}

// aromaticBracket adds the elements only written aromatic inside brackets.
var aromaticBracket = map[int]bool{5: true, 6: true, 7: true, 8: true, 15: true, 16: true, 33: true, 34: true, 52: true}

//Personal.AI order the ending
