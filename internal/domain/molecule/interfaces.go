package molecule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// StructureFormat identifies how a Structure's Source is encoded.
type StructureFormat string

const (
	FormatSMILES  StructureFormat = "smiles"
	FormatMolfile StructureFormat = "molfile"
)

// Structure is a drug's molecular structure in its source notation.
type Structure struct {
	ID     string
	Format StructureFormat
	Source string
}

// Digest is a content hash of the structure, independent of the drug ID.
func (s Structure) Digest() string {
	h := sha256.New()
	h.Write([]byte(s.Format))
	h.Write([]byte{0})
	h.Write([]byte(s.Source))
	return hex.EncodeToString(h.Sum(nil))
}

// Parse builds the molecular graph of s.
func Parse(s Structure) (*Molecule, error) {
	switch s.Format {
	case FormatSMILES:
		return ParseSMILES(s.ID, s.Source)
	case FormatMolfile:
		return ParseMolBlock(s.ID, strings.NewReader(s.Source))
	}
	return nil, errors.Newf(errors.ErrCodeMoleculeInvalidFormat, "unsupported structure format %q", s.Format).WithDetail(s.ID)
}

// Fingerprinter turns a structure into a count fingerprint.  The similarity
// engine treats it as an opaque collaborator.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, s Structure) (*Fingerprint, error)
}

//Personal.AI order the ending
