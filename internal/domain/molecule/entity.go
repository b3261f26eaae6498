// Package molecule models small-molecule structures as atom/bond graphs,
// parses them from SMILES strings and MDL MOL files, and derives the Morgan
// count fingerprints the similarity engine compares.
package molecule

import (
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// BondOrder is the multiplicity of a bond.  Aromatic bonds are kept distinct
// from single and double bonds instead of being kekulized.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Atom is one vertex of the molecular graph.
type Atom struct {
	Symbol   string
	Isotope  int
	Charge   int
	Aromatic bool

	// HCount is the hydrogen count fixed by the source notation (bracket
	// atoms, explicit H atoms).  -1 lets the valence model decide.
	HCount int

	// ImplicitHs is filled in by perception.
	ImplicitHs int
}

// Bond is one edge of the molecular graph.
type Bond struct {
	Begin int
	End   int
	Order BondOrder
}

// Other returns the atom at the far end of the bond from atom i.
func (b Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

// Molecule is an undirected atom/bond graph.
type Molecule struct {
	ID    string
	Atoms []Atom
	Bonds []Bond

	atomBonds [][]int
}

// NewMolecule returns an empty molecule.
func NewMolecule(id string) *Molecule {
	return &Molecule{ID: id}
}

// AddAtom appends a and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.atomBonds = append(m.atomBonds, nil)
	return len(m.Atoms) - 1
}

// AddBond connects two existing atoms.
func (m *Molecule) AddBond(begin, end int, order BondOrder) error {
	n := len(m.Atoms)
	if begin < 0 || begin >= n || end < 0 || end >= n {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "bond %d-%d references a missing atom", begin+1, end+1)
	}
	if begin == end {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "atom %d is bonded to itself", begin+1)
	}
	if m.BondBetween(begin, end) >= 0 {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "duplicate bond %d-%d", begin+1, end+1)
	}
	m.Bonds = append(m.Bonds, Bond{Begin: begin, End: end, Order: order})
	idx := len(m.Bonds) - 1
	m.atomBonds[begin] = append(m.atomBonds[begin], idx)
	m.atomBonds[end] = append(m.atomBonds[end], idx)
	return nil
}

// NumAtoms returns the atom count, hydrogens included when explicit.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// AtomBonds returns the indices of the bonds incident on atom i.
func (m *Molecule) AtomBonds(i int) []int { return m.atomBonds[i] }

// BondBetween returns the index of the bond joining a and b, or -1.
func (m *Molecule) BondBetween(a, b int) int {
	for _, bi := range m.atomBonds[a] {
		if m.Bonds[bi].Other(a) == b {
			return bi
		}
	}
	return -1
}

// Degree is the explicit neighbour count of atom i.
func (m *Molecule) Degree(i int) int { return len(m.atomBonds[i]) }

// TotalDegree counts explicit neighbours plus implicit hydrogens.
func (m *Molecule) TotalDegree(i int) int { return len(m.atomBonds[i]) + m.Atoms[i].ImplicitHs }

// TotalHs counts implicit hydrogens plus explicit hydrogen neighbours.
func (m *Molecule) TotalHs(i int) int {
	n := m.Atoms[i].ImplicitHs
	for _, bi := range m.atomBonds[i] {
		if m.Atoms[m.Bonds[bi].Other(i)].Symbol == "H" {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Perception
// ─────────────────────────────────────────────────────────────────────────────

// perceive assigns implicit hydrogen counts.  Parsers call it once the graph
// is complete.
func (m *Molecule) perceive() {
	for i := range m.Atoms {
		m.Atoms[i].ImplicitHs = m.implicitHydrogens(i)
	}
}

// implicitHydrogens fills atom i up to its smallest allowed valence.  Aromatic
// bonds count as one, and an aromatic atom contributes one more for its share
// of the pi system.
func (m *Molecule) implicitHydrogens(i int) int {
	a := m.Atoms[i]
	if a.HCount >= 0 {
		return a.HCount
	}
	valences := chargedValences(a.Symbol, a.Charge)
	if len(valences) == 0 {
		return 0
	}
	used := 0
	aromaticBonds := 0
	for _, bi := range m.atomBonds[i] {
		switch o := m.Bonds[bi].Order; o {
		case BondAromatic:
			aromaticBonds++
			used++
		default:
			used += int(o)
		}
	}
	if a.Aromatic && aromaticBonds > 0 {
		used++
	}
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}

// AddHs returns a copy of m in which every implicit hydrogen is an explicit
// atom joined by a single bond.
func (m *Molecule) AddHs() *Molecule {
	out := NewMolecule(m.ID)
	for _, a := range m.Atoms {
		a.HCount = 0
		a.ImplicitHs = 0
		out.AddAtom(a)
	}
	for _, b := range m.Bonds {
		// Indices are copied from a valid graph.
		_ = out.AddBond(b.Begin, b.End, b.Order)
	}
	for i, a := range m.Atoms {
		for h := 0; h < a.ImplicitHs; h++ {
			hi := out.AddAtom(Atom{Symbol: "H", HCount: 0})
			_ = out.AddBond(i, hi, BondSingle)
		}
	}
	return out
}

// RingBonds marks bonds that lie on at least one cycle, i.e. every bond that
// is not a bridge of the graph.
func (m *Molecule) RingBonds() []bool {
	n := len(m.Atoms)
	inRing := make([]bool, len(m.Bonds))
	for i := range inRing {
		inRing[i] = true
	}
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	var visit func(u, parentBond int)
	visit = func(u, parentBond int) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, bi := range m.atomBonds[u] {
			if bi == parentBond {
				continue
			}
			v := m.Bonds[bi].Other(u)
			if disc[v] == -1 {
				visit(v, bi)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] > disc[u] {
					inRing[bi] = false
				}
			} else if disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] == -1 {
			visit(i, -1)
		}
	}
	return inRing
}

// RingAtoms marks atoms incident on a ring bond.
func (m *Molecule) RingAtoms() []bool {
	ringBonds := m.RingBonds()
	out := make([]bool, len(m.Atoms))
	for bi, r := range ringBonds {
		if r {
			out[m.Bonds[bi].Begin] = true
			out[m.Bonds[bi].End] = true
		}
	}
	return out
}

// HeavyAtomCount counts the non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for _, a := range m.Atoms {
		if a.Symbol != "H" {
			n++
		}
	}
	return n
}

//Personal.AI order the ending
