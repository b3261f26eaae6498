package ddi

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	ddit "github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// candidateColumns is the minimum width of an input candidate line:
// drug1, structure1, drug2, structure2.  Extra columns are ignored.
const candidateColumns = 4

// ReadCandidates reads the tab-separated candidate-pair file.  Blank lines
// are skipped; short lines are recorded on report as ErrCodeMalformedRecord
// and skipped.
func ReadCandidates(r io.Reader, report *ddit.StageReport) ([]ddit.CandidatePair, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []ddit.CandidatePair
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < candidateColumns {
			if report != nil {
				report.Warn(errors.ErrCodeMalformedRecord, fmt.Sprintf("line %d", line),
					fmt.Sprintf("%d tab-separated fields, want at least %d", len(fields), candidateColumns))
			}
			continue
		}
		out = append(out, ddit.CandidatePair{
			Drug1:      strings.TrimSpace(fields[0]),
			Structure1: strings.TrimSpace(fields[1]),
			Drug2:      strings.TrimSpace(fields[2]),
			Structure2: strings.TrimSpace(fields[3]),
			Line:       line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read candidate pairs")
	}
	return out, nil
}

// UniqueStructures returns each drug's first-seen structure in first-seen
// order.
func UniqueStructures(pairs []ddit.CandidatePair) (ids []string, structures map[string]string) {
	structures = make(map[string]string)
	add := func(id, s string) {
		if _, ok := structures[id]; ok {
			return
		}
		structures[id] = s
		ids = append(ids, id)
	}
	for _, p := range pairs {
		add(p.Drug1, p.Structure1)
		add(p.Drug2, p.Structure2)
	}
	return ids, structures
}

//Personal.AI order the ending
