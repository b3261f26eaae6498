package molecule

import (
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// checkKekulizable verifies that the aromatic atoms which must carry a ring
// double bond can be paired off along aromatic bonds.  "c1cccc1" fails: five
// carbons each need a partner.  Pyrrole-type atoms ([nH], o, s) donate a lone
// pair instead and need none.
func (m *Molecule) checkKekulizable() error {
	need := make([]bool, len(m.Atoms))
	count := 0
	for i := range m.Atoms {
		if m.needsPiBond(i) {
			need[i] = true
			count++
		}
	}
	if count == 0 {
		return nil
	}

	adj := make([][]int, len(m.Atoms))
	for _, b := range m.Bonds {
		if b.Order == BondAromatic && need[b.Begin] && need[b.End] {
			adj[b.Begin] = append(adj[b.Begin], b.End)
			adj[b.End] = append(adj[b.End], b.Begin)
		}
	}
	partner := make([]int, len(m.Atoms))
	for i := range partner {
		partner[i] = -1
	}
	if count%2 == 1 || !pairUp(need, adj, partner, count) {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed,
			"aromatic system cannot be kekulized: %d atoms need a ring double bond", count)
	}
	return nil
}

// pairUp searches for a perfect matching of the left unpaired atoms, always
// extending from the atom with the fewest free neighbours.
func pairUp(need []bool, adj [][]int, partner []int, left int) bool {
	if left == 0 {
		return true
	}
	pick, best := -1, 0
	for i := range need {
		if !need[i] || partner[i] >= 0 {
			continue
		}
		free := 0
		for _, j := range adj[i] {
			if partner[j] < 0 {
				free++
			}
		}
		if free == 0 {
			return false
		}
		if pick < 0 || free < best {
			pick, best = i, free
		}
	}
	for _, j := range adj[pick] {
		if partner[j] >= 0 {
			continue
		}
		partner[pick], partner[j] = j, pick
		if pairUp(need, adj, partner, left-2) {
			return true
		}
		partner[pick], partner[j] = -1, -1
	}
	return false
}

// needsPiBond reports whether aromatic atom i contributes one electron to the
// pi system and so must take a double bond in a Kekulé form.
func (m *Molecule) needsPiBond(i int) bool {
	a := m.Atoms[i]
	if !a.Aromatic {
		return false
	}
	aromaticBonds := 0
	for _, bi := range m.atomBonds[i] {
		switch m.Bonds[bi].Order {
		case BondAromatic:
			aromaticBonds++
		case BondDouble, BondTriple:
			// exocyclic double bond, e.g. the carbonyl of a pyridone
			return false
		}
	}
	if aromaticBonds == 0 {
		return false
	}

	switch a.Symbol {
	case "C":
		// [c-] donates a pair; [c+] offers an empty orbital.
		return a.Charge == 0
	case "N", "P", "As":
		switch {
		case a.Charge > 0:
			return true
		case a.Charge < 0:
			return false
		}
		return m.TotalHs(i) == 0 && m.Degree(i) < 3
	case "O", "S", "Se", "Te":
		return a.Charge > 0
	case "B":
		return a.Charge < 0
	}
	return false
}

//Personal.AI order the ending
