package ddi

import (
	"io"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// drugInfoColumns is the width of the approved drug information table:
// drugbank_id, name, three unused columns, target, one unused column, action,
// pharmacological_action.
const drugInfoColumns = 9

// DrugTargets maps a drug ID to its pharmacologically active targets in file
// order.
type DrugTargets map[string][]string

// Targets returns the targets of id.
func (d DrugTargets) Targets(id string) ([]string, bool) {
	t, ok := d[id]
	return t, ok
}

// Annotation renders "id(target1|target2)".
func (d DrugTargets) Annotation(id string) (string, bool) {
	t, ok := d[id]
	if !ok {
		return "", false
	}
	return id + "(" + strings.Join(t, "|") + ")", true
}

// LoadDrugTargets reads the headerless drug information table and keeps rows
// whose action is not "None" and whose pharmacological action is "yes".
func LoadDrugTargets(r io.Reader) (DrugTargets, error) {
	tr := newTabReader(r)
	out := make(DrugTargets)
	for {
		rec, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, "read drug information table")
		}
		if len(rec) < drugInfoColumns {
			line, _ := tr.FieldPos(0)
			return nil, errors.Newf(errors.ErrCodeMalformedRecord,
				"drug information line %d has %d fields, want %d", line, len(rec), drugInfoColumns)
		}
		id := strings.TrimSpace(rec[0])
		target := strings.TrimSpace(rec[5])
		action := strings.TrimSpace(rec[7])
		pharmacological := strings.TrimSpace(rec[8])
		if action == "None" || pharmacological != "yes" {
			continue
		}
		out[id] = append(out[id], target)
	}
	return out, nil
}

//Personal.AI order the ending
