// Package ddi defines the typed intermediate artifacts handed from one
// pipeline stage to the next: labelled matrices, candidate pairs, prediction
// rows and the per-stage warning report.
package ddi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// ReducedDimensions is the number of principal components kept per drug.
const ReducedDimensions = 50

// PairSeparator joins the two drug IDs of an ordered pair key.
const PairSeparator = "_"

// ─────────────────────────────────────────────────────────────────────────────
// Matrix
// ─────────────────────────────────────────────────────────────────────────────

// Matrix is a dense real matrix with string-labelled rows and columns.  It
// backs the similarity profile, the reduced feature table and the pair
// feature table.  Row and column order is the insertion order.
type Matrix struct {
	RowIDs []string
	ColIDs []string
	Values [][]float64

	rowIndex map[string]int
	colIndex map[string]int
}

// NewMatrix returns an empty matrix with the given column labels.
func NewMatrix(cols []string) *Matrix {
	m := &Matrix{
		ColIDs:   append([]string(nil), cols...),
		rowIndex: make(map[string]int),
		colIndex: make(map[string]int, len(cols)),
	}
	for j, c := range cols {
		m.colIndex[c] = j
	}
	return m
}

// AddRow appends a row.  A repeated row ID is rejected, as is a row whose
// length differs from the column count.
func (m *Matrix) AddRow(id string, values []float64) error {
	if len(values) != len(m.ColIDs) {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"row %q has %d values, matrix has %d columns", id, len(values), len(m.ColIDs))
	}
	if m.rowIndex == nil {
		m.reindex()
	}
	if _, dup := m.rowIndex[id]; dup {
		return errors.Newf(errors.ErrCodeMalformedRecord, "duplicate row %q", id)
	}
	m.rowIndex[id] = len(m.RowIDs)
	m.RowIDs = append(m.RowIDs, id)
	m.Values = append(m.Values, values)
	return nil
}

func (m *Matrix) reindex() {
	m.rowIndex = make(map[string]int, len(m.RowIDs))
	for i, r := range m.RowIDs {
		m.rowIndex[r] = i
	}
	m.colIndex = make(map[string]int, len(m.ColIDs))
	for j, c := range m.ColIDs {
		m.colIndex[c] = j
	}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) { return len(m.RowIDs), len(m.ColIDs) }

// HasRow reports whether id labels a row.
func (m *Matrix) HasRow(id string) bool {
	if m.rowIndex == nil {
		m.reindex()
	}
	_, ok := m.rowIndex[id]
	return ok
}

// Row returns the values of row id.  The slice is shared with the matrix.
func (m *Matrix) Row(id string) ([]float64, bool) {
	if m.rowIndex == nil {
		m.reindex()
	}
	i, ok := m.rowIndex[id]
	if !ok {
		return nil, false
	}
	return m.Values[i], true
}

// Lookup returns the cell at (row, col).
func (m *Matrix) Lookup(row, col string) (float64, bool) {
	if m.rowIndex == nil || m.colIndex == nil {
		m.reindex()
	}
	i, ok := m.rowIndex[row]
	if !ok {
		return 0, false
	}
	j, ok := m.colIndex[col]
	if !ok {
		return 0, false
	}
	return m.Values[i][j], true
}

// ComponentNames returns PC_1..PC_n.
func ComponentNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("PC_%d", i+1)
	}
	return out
}

// PairColumnNames returns 1_PC_1..1_PC_n followed by 2_PC_1..2_PC_n.
func PairColumnNames(n int) []string {
	out := make([]string, 0, 2*n)
	for side := 1; side <= 2; side++ {
		for i := 1; i <= n; i++ {
			out = append(out, fmt.Sprintf("%d_PC_%d", side, i))
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Pairs and rows
// ─────────────────────────────────────────────────────────────────────────────

// PairKey builds the ordered pair key "drug1_drug2".
func PairKey(drug1, drug2 string) string { return drug1 + PairSeparator + drug2 }

// SplitPair splits a pair key at its first separator.
func SplitPair(key string) (drug1, drug2 string, ok bool) {
	drug1, drug2, ok = strings.Cut(key, PairSeparator)
	if !ok || drug1 == "" || drug2 == "" {
		return "", "", false
	}
	return drug1, drug2, true
}

// CandidatePair is one line of the input interaction-candidate file.
type CandidatePair struct {
	Drug1      string
	Structure1 string
	Drug2      string
	Structure2 string
	// Line is the 1-based source line, used in warnings.
	Line int
}

// Prediction is one activated label of one drug pair.
type Prediction struct {
	Pair  string
	Label string
	// Score is the raw classifier probability, not the thresholded value.
	Score float64
}

// SummaryRow is a prediction rendered into its template sentence.
type SummaryRow struct {
	Pair            string
	InteractionType string
	Sentence        string
	Score           float64
}

// AnnotatedRow is a summary row with similar approved drugs per side.
type AnnotatedRow struct {
	SummaryRow
	LeftSimilar  []string
	RightSimilar []string
}

// ─────────────────────────────────────────────────────────────────────────────
// Warnings
// ─────────────────────────────────────────────────────────────────────────────

// Warning is a recoverable condition recorded instead of aborting a stage.
type Warning struct {
	Stage   string
	Code    errors.ErrorCode
	Subject string
	Message string
}

// StageReport accumulates the outcome of one stage run.
type StageReport struct {
	Stage      string
	StartedAt  time.Time
	Elapsed    time.Duration
	InputRows  int
	OutputRows int
	Warnings   []Warning
}

// NewStageReport starts a report for stage.
func NewStageReport(stage string) *StageReport {
	return &StageReport{Stage: stage, StartedAt: time.Now()}
}

// Warn records a warning.
func (r *StageReport) Warn(code errors.ErrorCode, subject, message string) {
	r.Warnings = append(r.Warnings, Warning{Stage: r.Stage, Code: code, Subject: subject, Message: message})
}

// WarnErr records err as a warning, using its AppError code when present.
func (r *StageReport) WarnErr(subject string, err error) {
	var ae *errors.AppError
	if errors.As(err, &ae) {
		msg := ae.Message
		if ae.Cause != nil {
			msg += ": " + ae.Cause.Error()
		}
		r.Warn(ae.Code, subject, msg)
		return
	}
	r.Warn(errors.CodeUnknown, subject, err.Error())
}

// Finish stamps the elapsed time and returns the report.
func (r *StageReport) Finish() *StageReport {
	r.Elapsed = time.Since(r.StartedAt)
	return r
}

// WarningCounts groups warnings by code.
func (r *StageReport) WarningCounts() map[errors.ErrorCode]int {
	out := make(map[errors.ErrorCode]int)
	for _, w := range r.Warnings {
		out[w.Code]++
	}
	return out
}

// WarningSummary renders WarningCounts as "DDI_001=2,DDI_002=1" in code order.
func (r *StageReport) WarningSummary() string {
	counts := r.WarningCounts()
	codes := make([]string, 0, len(counts))
	for c := range counts {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%s=%d", c, counts[errors.ErrorCode(c)])
	}
	return strings.Join(parts, ",")
}

//Personal.AI order the ending
