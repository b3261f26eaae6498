package molecule

// element describes the few periodic-table facts the fingerprint needs.
type element struct {
	Number int
	// Valences are the allowed neutral valences, smallest first.  Empty means
	// the element never receives implicit hydrogens.
	Valences []int
}

var elements = map[string]element{
	"*":  {0, nil},
	"H":  {1, []int{1}},
	"He": {2, nil},
	"Li": {3, []int{1}},
	"Be": {4, []int{2}},
	"B":  {5, []int{3}},
	"C":  {6, []int{4}},
	"N":  {7, []int{3, 5}},
	"O":  {8, []int{2}},
	"F":  {9, []int{1}},
	"Ne": {10, nil},
	"Na": {11, []int{1}},
	"Mg": {12, []int{2}},
	"Al": {13, []int{3}},
	"Si": {14, []int{4}},
	"P":  {15, []int{3, 5, 7}},
	"S":  {16, []int{2, 4, 6}},
	"Cl": {17, []int{1}},
	"Ar": {18, nil},
	"K":  {19, []int{1}},
	"Ca": {20, []int{2}},
	"Ti": {22, nil},
	"V":  {23, nil},
	"Cr": {24, nil},
	"Mn": {25, nil},
	"Fe": {26, nil},
	"Co": {27, nil},
	"Ni": {28, nil},
	"Cu": {29, nil},
	"Zn": {30, nil},
	"Ga": {31, nil},
	"Ge": {32, []int{4}},
	"As": {33, []int{3, 5}},
	"Se": {34, []int{2, 4, 6}},
	"Br": {35, []int{1}},
	"Kr": {36, nil},
	"Rb": {37, []int{1}},
	"Sr": {38, []int{2}},
	"Zr": {40, nil},
	"Mo": {42, nil},
	"Tc": {43, nil},
	"Ru": {44, nil},
	"Rh": {45, nil},
	"Pd": {46, nil},
	"Ag": {47, nil},
	"Cd": {48, nil},
	"In": {49, nil},
	"Sn": {50, nil},
	"Sb": {51, []int{3, 5}},
	"Te": {52, []int{2, 4, 6}},
	"I":  {53, []int{1, 3, 5}},
	"Xe": {54, nil},
	"Cs": {55, []int{1}},
	"Ba": {56, []int{2}},
	"La": {57, nil},
	"Sm": {62, nil},
	"Gd": {64, nil},
	"Lu": {71, nil},
	"W":  {74, nil},
	"Re": {75, nil},
	"Os": {76, nil},
	"Ir": {77, nil},
	"Pt": {78, nil},
	"Au": {79, nil},
	"Hg": {80, nil},
	"Tl": {81, nil},
	"Pb": {82, nil},
	"Bi": {83, nil},
	"Ra": {88, nil},
}

// organicSubset lists the symbols SMILES accepts outside brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true, "*": true,
}

// aromaticSymbols maps lowercase SMILES symbols to their element.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

// isKnownElement reports whether sym is in the element table.
func isKnownElement(sym string) bool {
	_, ok := elements[sym]
	return ok
}

// chargedValences shifts the neutral valences of sym by an isoelectronic rule:
// a cation of group 15/16 gains one bond per charge (N+ like C), carbon and
// boron lose one per unit of charge magnitude (C- like N), anions of group
// 15/16/17 lose one per charge (O- like F).
func chargedValences(sym string, charge int) []int {
	el, ok := elements[sym]
	if !ok || len(el.Valences) == 0 {
		return nil
	}
	if charge == 0 {
		return el.Valences
	}
	out := make([]int, 0, len(el.Valences))
	for _, v := range el.Valences {
		var shifted int
		switch sym {
		case "C", "Si", "Ge":
			shifted = v - abs(charge)
		case "B", "Al":
			shifted = v - charge
		default:
			shifted = v + charge
		}
		if shifted >= 0 {
			out = append(out, shifted)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

//Personal.AI order the ending
