// Package ddi holds the reference tables the reporting stages consult:
// interaction sentence templates, known interactions split by drug side, and
// approved-drug pharmacological targets.
package ddi

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// Template placeholders.
const (
	PlaceholderDrug1 = "#Drug1"
	PlaceholderDrug2 = "#Drug2"
)

// SubjectSwapped is the subject flag value marking templates whose
// grammatical subject is the second drug.
const SubjectSwapped = "2"

// SubstitutionPolicy decides which drug of a pair fills #Drug1.
type SubstitutionPolicy string

const (
	// SubstituteLexical always puts the pair's first drug in #Drug1,
	// whatever the subject flag says.
	SubstituteLexical SubstitutionPolicy = "lexical"
	// SubstituteSubject swaps the drugs when the subject flag is "2".
	SubstituteSubject SubstitutionPolicy = "subject"
)

// ParseSubstitutionPolicy parses s; empty selects SubstituteLexical.
func ParseSubstitutionPolicy(s string) (SubstitutionPolicy, error) {
	switch SubstitutionPolicy(s) {
	case "", SubstituteLexical:
		return SubstituteLexical, nil
	case SubstituteSubject:
		return SubstituteSubject, nil
	}
	return "", errors.InvalidParam("unknown substitution policy: " + s)
}

// InteractionTemplate describes one classifier label.
type InteractionTemplate struct {
	// Label is the classifier class identifier.
	Label string
	// Sentence contains the #Drug1 and #Drug2 placeholders.
	Sentence string
	// Subject is the directionality flag, "1" or "2".
	Subject string
	// InteractionType is the canonical type code used by the known-DDI table.
	InteractionType string
}

// Render substitutes the drugs into the sentence under policy.
func (t InteractionTemplate) Render(drug1, drug2 string, policy SubstitutionPolicy) string {
	if policy == SubstituteSubject && t.Subject == SubjectSwapped {
		drug1, drug2 = drug2, drug1
	}
	s := strings.ReplaceAll(t.Sentence, PlaceholderDrug1, drug1)
	return strings.ReplaceAll(s, PlaceholderDrug2, drug2)
}

// TemplateTable indexes templates by label.
type TemplateTable struct {
	byLabel map[string]InteractionTemplate
	labels  []string
}

// NewTemplateTable builds a table from templates; later duplicates win.
func NewTemplateTable(templates ...InteractionTemplate) *TemplateTable {
	t := &TemplateTable{
		byLabel: make(map[string]InteractionTemplate, len(templates)),
	}
	for _, tpl := range templates {
		if _, seen := t.byLabel[tpl.Label]; !seen {
			t.labels = append(t.labels, tpl.Label)
		}
		t.byLabel[tpl.Label] = tpl
	}
	return t
}

// Lookup returns the template for label.
func (t *TemplateTable) Lookup(label string) (InteractionTemplate, bool) {
	tpl, ok := t.byLabel[label]
	return tpl, ok
}

// MustLookup is Lookup returning ErrCodeUnknownInteractionLabel on a miss.
func (t *TemplateTable) MustLookup(label string) (InteractionTemplate, error) {
	tpl, ok := t.byLabel[label]
	if !ok {
		return InteractionTemplate{}, errors.New(errors.ErrCodeUnknownInteractionLabel,
			"interaction label has no sentence template").WithDetail(label)
	}
	return tpl, nil
}

// Labels returns the labels in file order.
func (t *TemplateTable) Labels() []string { return append([]string(nil), t.labels...) }

// Len returns the number of labels.
func (t *TemplateTable) Len() int { return len(t.byLabel) }

// LoadTemplates reads the interaction information CSV:
// a header, then interaction_type,sentence,subject,new_interaction_type.
func LoadTemplates(r io.Reader) (*TemplateTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeMalformedRecord, "interaction information file is empty")
		}
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read interaction information header")
	}

	var templates []InteractionTemplate
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, "read interaction information")
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 4 {
			line, _ := cr.FieldPos(0)
			return nil, errors.Newf(errors.ErrCodeMalformedRecord,
				"interaction information line %d has %d fields, want 4", line, len(rec))
		}
		templates = append(templates, InteractionTemplate{
			Label:           strings.TrimSpace(rec[0]),
			Sentence:        strings.TrimSpace(rec[1]),
			Subject:         strings.TrimSpace(rec[2]),
			InteractionType: strings.TrimSpace(rec[3]),
		})
	}
	return NewTemplateTable(templates...), nil
}

//Personal.AI order the ending
