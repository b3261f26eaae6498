package molecule

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// MDL charge codes in the atom block (column 37-39).
var molChargeCodes = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// ParseMolBlock reads the first molecule of an MDL V2000 MOL or SDF stream:
// a three-line header, the counts line, the atom and bond blocks and the
// "M  CHG" / "M  ISO" property lines up to "M  END".
func ParseMolBlock(id string, r io.Reader) (*Molecule, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make([]string, 0, 64)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "$$$$") {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read MOL block").WithDetail(id)
	}

	mol, err := parseMolLines(id, lines)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "invalid MOL block").WithDetail(id)
	}
	mol.perceive()
	return mol, nil
}

func parseMolLines(id string, lines []string) (*Molecule, error) {
	if len(lines) < 4 {
		return nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "too few lines for a header and counts line")
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "V3000 connection tables are not supported")
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "counts line atom count")
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "counts line bond count")
	}
	if nAtoms == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "molecule has no atoms")
	}
	body := lines[4:]
	if len(body) < nAtoms+nBonds {
		return nil, errors.Newf(errors.ErrCodeMoleculeParsingFailed,
			"expected %d atom and %d bond lines, found %d lines", nAtoms, nBonds, len(body))
	}

	mol := NewMolecule(id)
	for i := 0; i < nAtoms; i++ {
		a, err := parseMolAtom(body[i])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "atom line "+strconv.Itoa(i+1))
		}
		mol.AddAtom(a)
	}
	for i := 0; i < nBonds; i++ {
		line := body[nAtoms+i]
		begin, err1 := fixedInt(line, 0, 3)
		end, err2 := fixedInt(line, 3, 6)
		kind, err3 := fixedInt(line, 6, 9)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "bond line %d: %q", i+1, line)
		}
		order, ok := molBondOrder(kind)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "bond line %d: unsupported bond type %d", i+1, kind)
		}
		if err := mol.AddBond(begin-1, end-1, order); err != nil {
			return nil, err
		}
		if order == BondAromatic {
			mol.Atoms[begin-1].Aromatic = true
			mol.Atoms[end-1].Aromatic = true
		}
	}

	// Property block.  Any CHG or ISO line resets the atom-block values.
	chargesReset, isotopesReset := false, false
	for _, line := range body[nAtoms+nBonds:] {
		switch {
		case strings.HasPrefix(line, "M  END"):
			return mol, nil
		case strings.HasPrefix(line, "M  CHG"):
			if !chargesReset {
				for i := range mol.Atoms {
					mol.Atoms[i].Charge = 0
				}
				chargesReset = true
			}
			if err := applyPropertyPairs(mol, line, func(a *Atom, v int) { a.Charge = v }); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "M  ISO"):
			if !isotopesReset {
				for i := range mol.Atoms {
					mol.Atoms[i].Isotope = 0
				}
				isotopesReset = true
			}
			if err := applyPropertyPairs(mol, line, func(a *Atom, v int) { a.Isotope = v }); err != nil {
				return nil, err
			}
		}
	}
	return mol, nil
}

func parseMolAtom(line string) (Atom, error) {
	if len(line) < 34 {
		return Atom{}, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "atom line too short: %q", line)
	}
	sym := strings.TrimSpace(line[31:34])
	switch sym {
	case "D", "T":
		sym = "H"
	case "A", "Q", "L", "R", "R#":
		sym = "*"
	}
	if !isKnownElement(sym) {
		return Atom{}, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "unknown element %q", sym)
	}
	a := Atom{Symbol: sym, HCount: -1}
	if code, err := fixedInt(line, 36, 39); err == nil {
		a.Charge = molChargeCodes[code]
	}
	if sym == "H" {
		a.HCount = 0
	}
	return a, nil
}

func molBondOrder(kind int) (BondOrder, bool) {
	switch kind {
	case 1:
		return BondSingle, true
	case 2:
		return BondDouble, true
	case 3:
		return BondTriple, true
	case 4:
		return BondAromatic, true
	}
	return 0, false
}

// applyPropertyPairs reads "M  XXXnn8 aaa vvv aaa vvv ..." entries.
func applyPropertyPairs(mol *Molecule, line string, set func(*Atom, int)) error {
	fields := strings.Fields(line[6:])
	if len(fields) == 0 {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "empty property line %q", line)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || len(fields) < 1+2*n {
		return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "malformed property line %q", line)
	}
	for k := 0; k < n; k++ {
		idx, err1 := strconv.Atoi(fields[1+2*k])
		val, err2 := strconv.Atoi(fields[2+2*k])
		if err1 != nil || err2 != nil || idx < 1 || idx > len(mol.Atoms) {
			return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "malformed property line %q", line)
		}
		set(&mol.Atoms[idx-1], val)
	}
	return nil
}

// fixedInt parses the fixed-width integer field line[from:to].  A missing or
// blank field reads as zero.
func fixedInt(line string, from, to int) (int, error) {
	if from >= len(line) {
		return 0, nil
	}
	if to > len(line) {
		to = len(line)
	}
	f := strings.TrimSpace(line[from:to])
	if f == "" {
		return 0, nil
	}
	return strconv.Atoi(f)
}

//Personal.AI order the ending
