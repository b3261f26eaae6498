package molecule

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// ParseSMILES builds a molecular graph from a SMILES string.  It accepts the
// organic subset, bracket atoms (isotope, chirality, hydrogen count, charge,
// atom class), branches, ring closures including %nn, explicit bond symbols
// and dot-separated components.  Stereo marks are read and dropped.  Aromatic
// systems that admit no alternating single/double bond assignment are
// rejected.
func ParseSMILES(id, smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES").WithDetail(id)
	}
	p := &smilesParser{
		src:   s,
		mol:   NewMolecule(id),
		prev:  -1,
		rings: make(map[int]ringOpen),
	}
	err := p.parse()
	if err == nil {
		p.mol.perceive()
		err = p.mol.checkKekulizable()
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES").WithDetail(id)
	}
	return p.mol, nil
}

type ringOpen struct {
	atom  int
	order BondOrder
	set   bool
}

type smilesParser struct {
	src   string
	pos   int
	mol   *Molecule
	prev  int
	stack []int
	rings map[int]ringOpen

	// pending bond symbol, consumed by the next atom or ring closure
	bond    BondOrder
	bondSet bool
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeMoleculeParsingFailed, "position %d: "+format, append([]interface{}{p.pos}, args...)...)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch opens before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.bondSet {
				return p.fail("bond symbol before ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if p.bondSet {
				return p.fail("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == '$' || c == ':' || c == '/' || c == '\\':
			if p.bondSet {
				return p.fail("consecutive bond symbols")
			}
			p.bond = bondSymbolOrder(c)
			p.bondSet = true
			p.pos++
		case c == '%' || unicode.IsDigit(rune(c)):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			a, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.attach(a); err != nil {
				return err
			}
		default:
			a, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.attach(a); err != nil {
				return err
			}
		}
	}
	if len(p.stack) > 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) > 0 {
		return p.fail("unclosed ring bond")
	}
	if p.bondSet {
		return p.fail("dangling bond symbol")
	}
	if len(p.mol.Atoms) == 0 {
		return p.fail("no atoms")
	}
	return nil
}

func bondSymbolOrder(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		// Quadruple bonds have no slot of their own; triple is the closest.
		return BondTriple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

// attach adds atom a and bonds it to the previous atom, if any.
func (p *smilesParser) attach(a Atom) error {
	idx := p.mol.AddAtom(a)
	if p.prev >= 0 {
		order := p.defaultOrder(p.prev, idx)
		if p.bondSet {
			order = p.bond
		}
		if err := p.mol.AddBond(p.prev, idx, order); err != nil {
			return err
		}
	} else if p.bondSet {
		return p.fail("bond symbol without a preceding atom")
	}
	p.bondSet = false
	p.prev = idx
	return nil
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure before any atom")
	}
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.fail("'%%' must be followed by two digits")
		}
		num, _ = strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpen{atom: p.prev, order: p.bond, set: p.bondSet}
		p.bondSet = false
		return nil
	}
	delete(p.rings, num)

	order := p.defaultOrder(open.atom, p.prev)
	switch {
	case p.bondSet && open.set && p.bond != open.order && !isDirectional(p.bond, open.order):
		return p.fail("conflicting bond orders on ring closure %d", num)
	case p.bondSet:
		order = p.bond
	case open.set:
		order = open.order
	}
	p.bondSet = false
	return p.mol.AddBond(open.atom, p.prev, order)
}

// isDirectional tolerates '/' against '\' style mismatches, both single.
func isDirectional(a, b BondOrder) bool { return a == BondSingle && b == BondSingle }

func (p *smilesParser) organicAtom() (Atom, error) {
	rest := p.src[p.pos:]
	if strings.HasPrefix(rest, "Cl") || strings.HasPrefix(rest, "Br") {
		p.pos += 2
		return Atom{Symbol: rest[:2], HCount: -1}, nil
	}
	c := string(rest[0])
	if organicSubset[c] {
		p.pos++
		return Atom{Symbol: c, HCount: -1}, nil
	}
	switch c {
	case "b", "c", "n", "o", "p", "s":
		p.pos++
		return Atom{Symbol: aromaticSymbols[c], Aromatic: true, HCount: -1}, nil
	}
	return Atom{}, p.fail("unexpected character %q", c)
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, p.fail("unterminated bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	start := p.pos
	p.pos += end + 1

	a := Atom{HCount: 0}
	i := 0

	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}

	sym, n := bracketSymbol(body[i:])
	if n == 0 {
		p.pos = start
		return Atom{}, p.fail("unknown element in [%s]", body)
	}
	i += n
	if el, ok := aromaticSymbols[sym]; ok {
		a.Symbol = el
		a.Aromatic = true
	} else {
		a.Symbol = sym
	}

	if i < len(body) && body[i] == '@' {
		i++
		switch {
		case i < len(body) && body[i] == '@':
			i++
		case i+1 < len(body) && chiralClasses[body[i:i+2]]:
			// @TH1, @SP2, @OH15 ...
			i += 2
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j > i {
			a.HCount, _ = strconv.Atoi(body[i:j])
			i = j
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sc := body[i]
		i++
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		switch {
		case j > i:
			mag, _ := strconv.Atoi(body[i:j])
			a.Charge = sign * mag
			i = j
		default:
			mag := 1
			for i < len(body) && body[i] == sc {
				mag++
				i++
			}
			a.Charge = sign * mag
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}

	if i != len(body) {
		p.pos = start
		return Atom{}, p.fail("unexpected %q in [%s]", body[i:], body)
	}
	return a, nil
}

// bracketSymbol reads an element symbol at the start of s and returns it with
// the number of bytes consumed, or ("", 0).
func bracketSymbol(s string) (string, int) {
	if s == "" {
		return "", 0
	}
	if s[0] == '*' {
		return "*", 1
	}
	if len(s) >= 2 {
		if _, ok := aromaticSymbols[s[:2]]; ok {
			return s[:2], 2
		}
		if unicode.IsUpper(rune(s[0])) && unicode.IsLower(rune(s[1])) && isKnownElement(s[:2]) {
			return s[:2], 2
		}
	}
	if _, ok := aromaticSymbols[s[:1]]; ok {
		return s[:1], 1
	}
	if unicode.IsUpper(rune(s[0])) && isKnownElement(s[:1]) {
		return s[:1], 1
	}
	return "", 0
}

var chiralClasses = map[string]bool{"TH": true, "AL": true, "SP": true, "TB": true, "OH": true}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

//Personal.AI order the ending
