package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMolecule_AddBondValidation(t *testing.T) {
	m := NewMolecule("m")
	a := m.AddAtom(Atom{Symbol: "C", HCount: -1})
	b := m.AddAtom(Atom{Symbol: "O", HCount: -1})

	require.NoError(t, m.AddBond(a, b, BondDouble))
	assert.Error(t, m.AddBond(a, b, BondSingle), "duplicate")
	assert.Error(t, m.AddBond(a, a, BondSingle), "self loop")
	assert.Error(t, m.AddBond(a, 7, BondSingle), "missing atom")

	assert.Equal(t, 0, m.BondBetween(b, a))
	assert.Equal(t, -1, m.BondBetween(a, a))
	assert.Equal(t, 1, m.Degree(a))
}

func TestMolecule_AddHs(t *testing.T) {
	m, err := ParseSMILES("ethanol", "CCO")
	require.NoError(t, err)

	h := m.AddHs()
	assert.Equal(t, 9, h.NumAtoms())
	assert.Len(t, h.Bonds, 8)
	assert.Equal(t, 3, h.HeavyAtomCount())
	for i := range h.Atoms {
		assert.Zero(t, h.Atoms[i].ImplicitHs)
	}
	assert.Equal(t, 3, h.TotalHs(0))
	assert.Equal(t, 2, h.TotalHs(1))
	assert.Equal(t, 1, h.TotalHs(2))
	assert.Equal(t, 4, h.TotalDegree(0))

	// The source molecule is untouched.
	assert.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, 4, m.TotalDegree(0))
	assert.Equal(t, 3, m.TotalHs(0))
}

func TestMolecule_RingPerception(t *testing.T) {
	m, err := ParseSMILES("methylcyclopropane", "C1CC1C")
	require.NoError(t, err)

	ringBonds := m.RingBonds()
	ringCount := 0
	for _, r := range ringBonds {
		if r {
			ringCount++
		}
	}
	assert.Equal(t, 3, ringCount)
	assert.Equal(t, []bool{true, true, true, false}, m.RingAtoms())

	chain, err := ParseSMILES("butane", "CCCC")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false}, chain.RingAtoms())
}

func TestMolecule_FusedRings(t *testing.T) {
	m, err := ParseSMILES("naphthalene", "c1ccc2ccccc2c1")
	require.NoError(t, err)
	assert.Len(t, m.Bonds, 11)
	for _, r := range m.RingBonds() {
		assert.True(t, r)
	}
	// Fusion atoms carry no hydrogen.
	assert.Equal(t, 0, m.Atoms[3].ImplicitHs)
	assert.Equal(t, 0, m.Atoms[8].ImplicitHs)
	assert.Equal(t, 1, m.Atoms[0].ImplicitHs)
}

func TestChargedValences(t *testing.T) {
	assert.Equal(t, []int{4, 6}, chargedValences("N", 1))
	assert.Equal(t, []int{1}, chargedValences("O", -1))
	assert.Equal(t, []int{3}, chargedValences("C", -1))
	assert.Equal(t, []int{4}, chargedValences("B", -1))
	assert.Nil(t, chargedValences("Fe", 2))
	assert.Nil(t, chargedValences("Zz", 0))
}

//Personal.AI order the ending
