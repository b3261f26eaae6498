package similarity

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMol "github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// sumFingerprinter reads structures of the form "sum:N" and returns a
// fingerprint whose counts add up to N.  Anything else fails to parse.
type sumFingerprinter struct{ calls []string }

func (f *sumFingerprinter) Fingerprint(_ context.Context, s domainMol.Structure) (*domainMol.Fingerprint, error) {
	f.calls = append(f.calls, s.ID)
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s.Source), "sum:"))
	if err != nil || !strings.HasPrefix(s.Source, "sum:") {
		return nil, errors.New(errors.ErrCodeParseFailure, "cannot parse structure").WithDetail(s.ID)
	}
	return &domainMol.Fingerprint{Radius: 2, Counts: map[uint32]int{1: n}}, nil
}

func writeStructures(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestCompareDirectories_RatioIsAsymmetric(t *testing.T) {
	dir := writeStructures(t, map[string]string{"A.mol": "sum:10", "B.mol": "sum:20"})
	svc := NewService(&sumFingerprinter{}, Options{}, logging.NewNopLogger())

	m, report, err := svc.CompareDirectories(context.Background(), dir, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, m.ColIDs)
	assert.Equal(t, []string{"A", "B"}, m.RowIDs)

	// Query B against reference A is 20/10; the reverse is 10/20.
	v, ok := m.Lookup("B", "A")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, _ = m.Lookup("A", "B")
	assert.Equal(t, 0.5, v)
	v, _ = m.Lookup("A", "A")
	assert.Equal(t, 1.0, v)

	assert.Empty(t, report.Warnings)
	assert.Equal(t, 2, report.OutputRows)
}

func TestCompareDirectories_ShapeAndSkips(t *testing.T) {
	refs := writeStructures(t, map[string]string{
		"DB01.mol":  "sum:4",
		"DB02.mol":  "sum:8",
		"DB03.mol":  "broken",
		".hidden":   "sum:1",
		"notes.txt": "sum:1",
	})
	queries := writeStructures(t, map[string]string{"Q1.mol": "sum:2", "Q2.sdf": "sum:16"})
	svc := NewService(&sumFingerprinter{}, Options{Extensions: []string{"mol", ".SDF"}}, nil)

	m, report, err := svc.CompareDirectories(context.Background(), refs, queries)
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []string{"DB01", "DB02"}, m.ColIDs)
	for _, row := range m.Values {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, errors.ErrCodeParseFailure, report.Warnings[0].Code)
	assert.Equal(t, "DB03", report.Warnings[0].Subject)
}

func TestCompareDirectories_MissingDirectory(t *testing.T) {
	svc := NewService(&sumFingerprinter{}, Options{}, nil)
	_, _, err := svc.CompareDirectories(context.Background(), filepath.Join(t.TempDir(), "absent"), t.TempDir())
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func TestCompareCandidates(t *testing.T) {
	refs := writeStructures(t, map[string]string{"R1.mol": "sum:10", "R2.mol": "sum:5"})
	pairs := []ddi.CandidatePair{
		{Drug1: "DB1", Structure1: "sum:10", Drug2: "DB2", Structure2: "sum:20"},
		{Drug1: "DB2", Structure1: "sum:99", Drug2: "DBX", Structure2: "C1CC"},
		{Drug1: "DB3", Structure1: "sum:5", Drug2: "DB1", Structure2: "sum:10"},
	}
	fp := &sumFingerprinter{}
	svc := NewService(fp, Options{}, nil)

	m, report, err := svc.CompareCandidates(context.Background(), refs, pairs)
	require.NoError(t, err)
	assert.Equal(t, []string{"DB1", "DB2", "DB3"}, m.RowIDs)
	assert.Equal(t, []string{"R1", "R2"}, m.ColIDs)

	// DB2 keeps the structure of its first occurrence.
	v, _ := m.Lookup("DB2", "R1")
	assert.Equal(t, 2.0, v)
	v, _ = m.Lookup("DB3", "R2")
	assert.Equal(t, 1.0, v)

	assert.Equal(t, 4, report.InputRows)
	assert.Equal(t, 3, report.OutputRows)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "DBX", report.Warnings[0].Subject)
	assert.Equal(t, errors.ErrCodeParseFailure, report.Warnings[0].Code)
}

func TestCompareCandidates_Cancelled(t *testing.T) {
	refs := writeStructures(t, map[string]string{"R1.mol": "sum:10"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(&sumFingerprinter{}, Options{}, nil)
	_, _, err := svc.CompareCandidates(ctx, refs, []ddi.CandidatePair{{Drug1: "A", Structure1: "sum:1", Drug2: "B", Structure2: "sum:2"}})
	assert.Error(t, err)
}

const ethanolMol = `ethanol
  ddichecker

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.0000    1.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
`

func TestCompareCandidates_MorganFingerprints(t *testing.T) {
	refs := writeStructures(t, map[string]string{"DB00898.mol": ethanolMol})
	fingerprinter := domainMol.NewService(nil, domainMol.DefaultServiceOptions(), nil)
	pairs := []ddi.CandidatePair{{Drug1: "E", Structure1: "CCO", Drug2: "M", Structure2: "C"}}

	ratio := NewService(fingerprinter, Options{}, nil)
	m, _, err := ratio.CompareCandidates(context.Background(), refs, pairs)
	require.NoError(t, err)
	v, _ := m.Lookup("E", "DB00898")
	assert.Equal(t, 1.0, v)
	v, _ = m.Lookup("M", "DB00898")
	assert.Less(t, v, 1.0)

	tanimoto := NewService(fingerprinter, Options{Scorer: domainMol.TanimotoScorer{}}, nil)
	m, _, err = tanimoto.CompareCandidates(context.Background(), refs, pairs)
	require.NoError(t, err)
	v, _ = m.Lookup("E", "DB00898")
	assert.Equal(t, 1.0, v)
}

//Personal.AI order the ending
