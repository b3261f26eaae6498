package molecule

import (
	"encoding/binary"
	"sort"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// DefaultRadius is the Morgan radius the interaction model was trained with.
const DefaultRadius = 2

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is an unfolded Morgan count fingerprint: environment
// identifier → number of occurrences.
type Fingerprint struct {
	Radius int            `json:"radius"`
	Counts map[uint32]int `json:"counts"`
}

// Sum returns the total number of environments, duplicates included.
func (fp *Fingerprint) Sum() int {
	n := 0
	for _, c := range fp.Counts {
		n += c
	}
	return n
}

// Len returns the number of distinct environment identifiers.
func (fp *Fingerprint) Len() int { return len(fp.Counts) }

// ─────────────────────────────────────────────────────────────────────────────
// Morgan
// ─────────────────────────────────────────────────────────────────────────────

// MorganCount computes the extended-connectivity count fingerprint of mol.
//
// Layer 0 emits one identifier per atom from its connectivity invariant
// (atomic number, total degree, hydrogen count, formal charge, isotope and ring
// membership).  Every further layer hashes an atom's previous identifier with
// its sorted (bond order, neighbour identifier) pairs.  An environment whose
// bond set was already emitted, in this layer or an earlier one, is dropped and
// its centre atom stops growing.
func MorganCount(mol *Molecule, radius int) (*Fingerprint, error) {
	if mol == nil || mol.NumAtoms() == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "molecule has no atoms")
	}
	if radius < 0 {
		return nil, errors.Newf(errors.ErrCodeFingerprintGenerationFailed, "negative radius %d", radius)
	}

	n := mol.NumAtoms()
	fp := &Fingerprint{Radius: radius, Counts: make(map[uint32]int)}

	current := atomInvariants(mol)
	for _, inv := range current {
		fp.Counts[inv]++
	}

	words := (len(mol.Bonds) + 63) / 64
	atomEnv := make([]bondSet, n)
	for i := range atomEnv {
		atomEnv[i] = make(bondSet, words)
	}
	seen := make(map[string]bool)
	dead := make([]bool, n)

	type candidate struct {
		env  bondSet
		inv  uint32
		atom int
	}

	for layer := 0; layer < radius; layer++ {
		next := append([]uint32(nil), current...)
		roundEnv := make([]bondSet, n)
		var round []candidate

		for i := 0; i < n; i++ {
			roundEnv[i] = atomEnv[i].clone()
			if dead[i] {
				continue
			}
			bonds := mol.AtomBonds(i)
			if len(bonds) == 0 {
				dead[i] = true
				continue
			}
			nbrs := make([][2]uint32, 0, len(bonds))
			for _, bi := range bonds {
				other := mol.Bonds[bi].Other(i)
				roundEnv[i].set(bi)
				roundEnv[i].or(atomEnv[other])
				nbrs = append(nbrs, [2]uint32{uint32(mol.Bonds[bi].Order), current[other]})
			}
			sort.Slice(nbrs, func(a, b int) bool {
				if nbrs[a][0] != nbrs[b][0] {
					return nbrs[a][0] < nbrs[b][0]
				}
				return nbrs[a][1] < nbrs[b][1]
			})
			inv := uint32(layer)
			hashCombine(&inv, current[i])
			for _, nb := range nbrs {
				hashCombine(&inv, nb[0])
				hashCombine(&inv, nb[1])
			}
			next[i] = inv
			round = append(round, candidate{env: roundEnv[i], inv: inv, atom: i})
		}

		sort.Slice(round, func(a, b int) bool {
			if c := round[a].env.compare(round[b].env); c != 0 {
				return c < 0
			}
			if round[a].inv != round[b].inv {
				return round[a].inv < round[b].inv
			}
			return round[a].atom < round[b].atom
		})
		for _, c := range round {
			key := c.env.key()
			if seen[key] {
				dead[c.atom] = true
				continue
			}
			seen[key] = true
			fp.Counts[c.inv]++
		}

		current = next
		atomEnv = roundEnv
	}
	return fp, nil
}

// atomInvariants hashes the layer-0 connectivity invariant of every atom.
func atomInvariants(mol *Molecule) []uint32 {
	ring := mol.RingAtoms()
	out := make([]uint32, mol.NumAtoms())
	for i, a := range mol.Atoms {
		var h uint32
		hashCombine(&h, uint32(elements[a.Symbol].Number))
		hashCombine(&h, uint32(mol.TotalDegree(i)))
		hashCombine(&h, uint32(mol.TotalHs(i)))
		hashCombine(&h, uint32(int32(a.Charge)))
		hashCombine(&h, uint32(a.Isotope))
		if ring[i] {
			hashCombine(&h, 1)
		}
		out[i] = h
	}
	return out
}

// hashCombine is the boost hash_combine mix on 32 bits.
func hashCombine(seed *uint32, v uint32) {
	*seed ^= v + 0x9e3779b9 + (*seed << 6) + (*seed >> 2)
}

// ─────────────────────────────────────────────────────────────────────────────
// bondSet
// ─────────────────────────────────────────────────────────────────────────────

type bondSet []uint64

func (s bondSet) set(i int) { s[i/64] |= 1 << uint(i%64) }

func (s bondSet) or(o bondSet) {
	for i := range s {
		s[i] |= o[i]
	}
}

func (s bondSet) clone() bondSet { return append(bondSet(nil), s...) }

func (s bondSet) compare(o bondSet) int {
	for i := range s {
		switch {
		case s[i] < o[i]:
			return -1
		case s[i] > o[i]:
			return 1
		}
	}
	return 0
}

func (s bondSet) key() string {
	buf := make([]byte, 8*len(s))
	for i, w := range s {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return string(buf)
}

//Personal.AI order the ending
