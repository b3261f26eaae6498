package tabular

import (
	"bufio"
	"io"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Report headers.
var (
	PredictionHeader = []string{"Drug pair", "Predicted class", "Score"}
	SummaryHeader    = []string{"Drug pair", "DDI type", "Sentence", "Score"}
	AnnotatedHeader  = []string{"Drug pair", "Interaction type", "Sentence", "Score",
		"Similar approved drugs (left)", "Similar approved drugs (right)"}
	WarningHeader = []string{"Stage", "Code", "Subject", "Message"}
)

// AnnotationSeparator joins the similar-drug annotations of one side.
const AnnotationSeparator = ";"

// tsvWriter writes tab-joined lines.  Fields are written verbatim, as the
// reports carry free text sentences; tabs and newlines inside a field are
// replaced by spaces to keep one record per line.
type tsvWriter struct {
	w   *bufio.Writer
	err error
}

func newTSVWriter(w io.Writer) *tsvWriter { return &tsvWriter{w: bufio.NewWriter(w)} }

var fieldSanitizer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func (t *tsvWriter) write(fields ...string) {
	if t.err != nil {
		return
	}
	for i, f := range fields {
		if i > 0 {
			if t.err = t.w.WriteByte('\t'); t.err != nil {
				return
			}
		}
		if _, t.err = t.w.WriteString(fieldSanitizer.Replace(f)); t.err != nil {
			return
		}
	}
	t.err = t.w.WriteByte('\n')
}

func (t *tsvWriter) flush(what string) error {
	if t.err == nil {
		t.err = t.w.Flush()
	}
	if t.err != nil {
		return errors.Wrap(t.err, errors.ErrCodeIO, "write "+what)
	}
	return nil
}

// readTSV calls fn for every non-blank line after the header.  The header is
// checked against want when want is non-nil.
func readTSV(r io.Reader, what string, want []string, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 {
			if want != nil && !sameHeader(strings.Split(text, "\t"), want) {
				return errors.Newf(errors.ErrCodeMalformedRecord, "%s header %q, want %q",
					what, text, strings.Join(want, "\t"))
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := fn(line, strings.Split(text, "\t")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "read "+what)
	}
	if line == 0 {
		return errors.Newf(errors.ErrCodeMalformedRecord, "%s is empty", what)
	}
	return nil
}

func sameHeader(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func parseScore(what string, line int, s string) (float64, error) {
	v, err := ParseFloat(s)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeMalformedRecord, "%s line %d: score %q is not a number", what, line, s)
	}
	return v, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Raw predictions
// ─────────────────────────────────────────────────────────────────────────────

// WritePredictions writes the raw prediction report.
func WritePredictions(w io.Writer, rows []ddi.Prediction) error {
	t := newTSVWriter(w)
	t.write(PredictionHeader...)
	for _, r := range rows {
		t.write(r.Pair, r.Label, FormatFloat(r.Score))
	}
	return t.flush("prediction report")
}

// ReadPredictions reads a report written by WritePredictions.
func ReadPredictions(r io.Reader) ([]ddi.Prediction, error) {
	const what = "prediction report"
	var out []ddi.Prediction
	err := readTSV(r, what, PredictionHeader, func(line int, f []string) error {
		if len(f) < 3 {
			return errors.Newf(errors.ErrCodeMalformedRecord, "%s line %d has %d fields, want 3", what, line, len(f))
		}
		score, err := parseScore(what, line, f[2])
		if err != nil {
			return err
		}
		out = append(out, ddi.Prediction{Pair: f[0], Label: f[1], Score: score})
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Summaries
// ─────────────────────────────────────────────────────────────────────────────

// WriteSummary writes the summarized prediction report.
func WriteSummary(w io.Writer, rows []ddi.SummaryRow) error {
	t := newTSVWriter(w)
	t.write(SummaryHeader...)
	for _, r := range rows {
		t.write(r.Pair, r.InteractionType, r.Sentence, FormatFloat(r.Score))
	}
	return t.flush("summary report")
}

// ReadSummary reads a report written by WriteSummary.
func ReadSummary(r io.Reader) ([]ddi.SummaryRow, error) {
	const what = "summary report"
	var out []ddi.SummaryRow
	err := readTSV(r, what, SummaryHeader, func(line int, f []string) error {
		if len(f) < 4 {
			return errors.Newf(errors.ErrCodeMalformedRecord, "%s line %d has %d fields, want 4", what, line, len(f))
		}
		score, err := parseScore(what, line, f[3])
		if err != nil {
			return err
		}
		out = append(out, ddi.SummaryRow{Pair: f[0], InteractionType: f[1], Sentence: f[2], Score: score})
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Annotated report and warnings
// ─────────────────────────────────────────────────────────────────────────────

// WriteAnnotated writes the final annotated report.
func WriteAnnotated(w io.Writer, rows []ddi.AnnotatedRow) error {
	t := newTSVWriter(w)
	t.write(AnnotatedHeader...)
	for _, r := range rows {
		t.write(r.Pair, r.InteractionType, r.Sentence, FormatFloat(r.Score),
			strings.Join(r.LeftSimilar, AnnotationSeparator),
			strings.Join(r.RightSimilar, AnnotationSeparator))
	}
	return t.flush("annotated report")
}

// ReadAnnotated reads a report written by WriteAnnotated.
func ReadAnnotated(r io.Reader) ([]ddi.AnnotatedRow, error) {
	const what = "annotated report"
	var out []ddi.AnnotatedRow
	err := readTSV(r, what, AnnotatedHeader, func(line int, f []string) error {
		if len(f) < 4 {
			return errors.Newf(errors.ErrCodeMalformedRecord, "%s line %d has %d fields, want at least 4", what, line, len(f))
		}
		score, err := parseScore(what, line, f[3])
		if err != nil {
			return err
		}
		row := ddi.AnnotatedRow{SummaryRow: ddi.SummaryRow{Pair: f[0], InteractionType: f[1], Sentence: f[2], Score: score}}
		if len(f) > 4 {
			row.LeftSimilar = splitAnnotations(f[4])
		}
		if len(f) > 5 {
			row.RightSimilar = splitAnnotations(f[5])
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func splitAnnotations(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, AnnotationSeparator)
}

// WriteWarnings writes every warning of every report.
func WriteWarnings(w io.Writer, reports ...*ddi.StageReport) error {
	t := newTSVWriter(w)
	t.write(WarningHeader...)
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		for _, wn := range rep.Warnings {
			t.write(wn.Stage, string(wn.Code), wn.Subject, wn.Message)
		}
	}
	return t.flush("warnings")
}

//Personal.AI order the ending
