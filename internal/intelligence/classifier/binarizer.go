package classifier

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// LabelBinarizer maps classifier output positions to interaction labels.
type LabelBinarizer struct {
	classes []string
	index   map[string]int
}

// NewLabelBinarizer builds a binarizer over classes in output-position order.
func NewLabelBinarizer(classes []string) (*LabelBinarizer, error) {
	if len(classes) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "label binarizer has no classes")
	}
	lb := &LabelBinarizer{classes: append([]string(nil), classes...), index: make(map[string]int, len(classes))}
	for i, c := range classes {
		if _, dup := lb.index[c]; dup {
			return nil, errors.Newf(errors.ErrCodeValidation, "label binarizer lists class %q twice", c)
		}
		lb.index[c] = i
	}
	return lb, nil
}

// LoadLabelBinarizer decodes {"classes": [...]}.  Classes may be JSON strings
// or integers; both are kept in their decimal text form.
func LoadLabelBinarizer(r io.Reader) (*LabelBinarizer, error) {
	var raw struct {
		Classes []json.RawMessage `json:"classes"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode label binarizer")
	}
	classes := make([]string, len(raw.Classes))
	for i, c := range raw.Classes {
		s, err := classText(c)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode label binarizer").
				WithDetail("class " + strconv.Itoa(i))
		}
		classes[i] = s
	}
	return NewLabelBinarizer(classes)
}

func classText(c json.RawMessage) (string, error) {
	c = bytes.TrimSpace(c)
	if len(c) > 0 && c[0] == '"' {
		var s string
		err := json.Unmarshal(c, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(c, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Classes returns the labels in output-position order.
func (lb *LabelBinarizer) Classes() []string { return append([]string(nil), lb.classes...) }

// Len is the number of classifier outputs.
func (lb *LabelBinarizer) Len() int { return len(lb.classes) }

// Position returns the output position of label.
func (lb *LabelBinarizer) Position(label string) (int, bool) {
	i, ok := lb.index[label]
	return i, ok
}

// InverseTransform returns the labels whose probability reaches threshold
// together with their raw probabilities.
func (lb *LabelBinarizer) InverseTransform(probs []float64, threshold float64) (labels []string, scores []float64) {
	for i, p := range probs {
		if i >= len(lb.classes) {
			break
		}
		if p >= threshold {
			labels = append(labels, lb.classes[i])
			scores = append(scores, p)
		}
	}
	return labels, scores
}

//Personal.AI order the ending
