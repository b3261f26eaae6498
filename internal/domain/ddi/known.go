package ddi

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// Side selects which drug of a known interaction an index lookup refers to.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// KnownDDIIndex holds, per canonical interaction type, the distinct drugs
// seen on each side of a known interaction.
type KnownDDIIndex struct {
	left  map[string][]string
	right map[string][]string
}

// NewKnownDDIIndex returns an empty index.
func NewKnownDDIIndex() *KnownDDIIndex {
	return &KnownDDIIndex{left: map[string][]string{}, right: map[string][]string{}}
}

// Add records one known interaction.  Call Finalize after the last Add.
func (k *KnownDDIIndex) Add(leftDrug, rightDrug, interactionType string) {
	k.left[interactionType] = append(k.left[interactionType], leftDrug)
	k.right[interactionType] = append(k.right[interactionType], rightDrug)
}

// Finalize deduplicates and sorts every drug list.
func (k *KnownDDIIndex) Finalize() *KnownDDIIndex {
	for _, m := range []map[string][]string{k.left, k.right} {
		for t, drugs := range m {
			m[t] = uniqueSorted(drugs)
		}
	}
	return k
}

// Drugs returns the known drugs on side for interactionType.  A type with no
// records yields ErrCodeMissingKnownDDIRecords.
func (k *KnownDDIIndex) Drugs(interactionType string, side Side) ([]string, error) {
	m := k.left
	if side == SideRight {
		m = k.right
	}
	drugs, ok := m[interactionType]
	if !ok || len(drugs) == 0 {
		return nil, errors.Newf(errors.ErrCodeMissingKnownDDIRecords,
			"no known %s-side drugs for interaction type %s", side, interactionType)
	}
	return drugs, nil
}

// LoadKnownDDI reads the known-DDI table: a header, then
// left_drug<TAB>right_drug<TAB>interaction_type.
func LoadKnownDDI(r io.Reader) (*KnownDDIIndex, error) {
	tr := newTabReader(r)
	if _, err := tr.Read(); err != nil {
		if err == io.EOF {
			return NewKnownDDIIndex(), nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read known DDI header")
	}

	idx := NewKnownDDIIndex()
	for {
		rec, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, "read known DDI table")
		}
		if len(rec) < 3 {
			line, _ := tr.FieldPos(0)
			return nil, errors.Newf(errors.ErrCodeMalformedRecord, "known DDI line %d has %d fields, want 3", line, len(rec))
		}
		idx.Add(strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), strings.TrimSpace(rec[2]))
	}
	return idx.Finalize(), nil
}

func newTabReader(r io.Reader) *csv.Reader {
	tr := csv.NewReader(r)
	tr.Comma = '\t'
	tr.FieldsPerRecord = -1
	tr.LazyQuotes = true
	return tr
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
