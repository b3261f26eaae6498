// Package tabular reads and writes the pipeline's file artifacts: labelled
// matrices as comma-separated files with a leading index column, and the
// prediction reports as tab-separated files with a fixed header.
package tabular

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// FormatFloat renders v in shortest round-trip decimal form without an
// exponent.  NaN renders as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat is the inverse of FormatFloat; an empty cell reads as NaN.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteMatrixCSV writes m with an empty top-left cell, the column labels, and
// one line per row led by its label.
func WriteMatrixCSV(w io.Writer, m *ddi.Matrix) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(m.ColIDs)+1)
	header = append(header, "")
	header = append(header, m.ColIDs...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "write matrix header")
	}
	rec := make([]string, len(m.ColIDs)+1)
	for i, id := range m.RowIDs {
		rec[0] = id
		for j, v := range m.Values[i] {
			rec[j+1] = FormatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, errors.ErrCodeIO, "write matrix row").WithDetail(id)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "flush matrix")
	}
	return nil
}

// ReadMatrixCSV reads a matrix written by WriteMatrixCSV or by pandas
// DataFrame.to_csv.
func ReadMatrixCSV(r io.Reader) (*ddi.Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeMalformedRecord, "matrix file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, "read matrix header")
	}
	if len(header) < 1 {
		return nil, errors.New(errors.ErrCodeMalformedRecord, "matrix header has no index column")
	}
	cols := header[1:]
	m := ddi.NewMatrix(cols)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, "read matrix row")
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != len(cols)+1 {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
				"matrix line %d has %d cells, header has %d", line, len(rec), len(cols)+1)
		}
		values := make([]float64, len(cols))
		for j, cell := range rec[1:] {
			v, err := ParseFloat(cell)
			if err != nil {
				return nil, errors.Newf(errors.ErrCodeMalformedRecord,
					"matrix line %d column %q: %q is not a number", line, cols[j], cell)
			}
			values[j] = v
		}
		if err := m.AddRow(rec[0], values); err != nil {
			return nil, err
		}
	}
	return m, nil
}

//Personal.AI order the ending
