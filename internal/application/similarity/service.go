// Package similarity builds structural similarity profiles: one row per query
// drug, one column per reference drug, each cell the configured score of the
// query fingerprint against the reference fingerprint.
package similarity

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	domainMol "github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Stage is the report name of this component.
const Stage = "similarity"

// Service defines the similarity engine operations.
type Service interface {
	// CompareDirectories scores every structure file of queryDir against
	// every structure file of referenceDir.
	CompareDirectories(ctx context.Context, referenceDir, queryDir string) (*ddi.Matrix, *ddi.StageReport, error)
	// CompareCandidates scores the SMILES of every distinct drug of pairs
	// against every structure file of referenceDir.
	CompareCandidates(ctx context.Context, referenceDir string, pairs []ddi.CandidatePair) (*ddi.Matrix, *ddi.StageReport, error)
}

// Options configures the engine.
type Options struct {
	Scorer domainMol.Scorer
	// Extensions restricts which files of a structure directory are read.
	// Empty means every regular, non-hidden file.
	Extensions []string
}

type profile struct {
	id string
	fp *domainMol.Fingerprint
}

type serviceImpl struct {
	fingerprinter domainMol.Fingerprinter
	scorer        domainMol.Scorer
	extensions    map[string]bool
	logger        logging.Logger
}

// NewService creates a similarity engine.  A nil scorer selects the ratio
// score.
func NewService(fp domainMol.Fingerprinter, opts Options, logger logging.Logger) Service {
	s := &serviceImpl{
		fingerprinter: fp,
		scorer:        opts.Scorer,
		logger:        logging.OrNop(logger).Named(Stage),
	}
	if s.scorer == nil {
		s.scorer = domainMol.RatioScorer{}
	}
	if len(opts.Extensions) > 0 {
		s.extensions = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions[ext] = true
		}
	}
	return s
}

func (s *serviceImpl) CompareDirectories(ctx context.Context, referenceDir, queryDir string) (*ddi.Matrix, *ddi.StageReport, error) {
	report := ddi.NewStageReport(Stage)
	refs, err := s.loadDirectory(ctx, referenceDir, report)
	if err != nil {
		return nil, report, err
	}
	queries, err := s.loadDirectory(ctx, queryDir, report)
	if err != nil {
		return nil, report, err
	}
	report.InputRows = len(queries)
	m, err := s.score(ctx, refs, queries)
	if err != nil {
		return nil, report, err
	}
	report.OutputRows = len(m.RowIDs)
	s.finish(report, len(refs))
	return m, report, nil
}

func (s *serviceImpl) CompareCandidates(ctx context.Context, referenceDir string, pairs []ddi.CandidatePair) (*ddi.Matrix, *ddi.StageReport, error) {
	report := ddi.NewStageReport(Stage)
	refs, err := s.loadDirectory(ctx, referenceDir, report)
	if err != nil {
		return nil, report, err
	}

	ids, smiles := domainDDI.UniqueStructures(pairs)
	report.InputRows = len(ids)
	queries := make([]profile, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, report, errors.Wrap(err, errors.ErrCodeInternal, "similarity cancelled")
		}
		fp, err := s.fingerprinter.Fingerprint(ctx, domainMol.Structure{ID: id, Format: domainMol.FormatSMILES, Source: smiles[id]})
		if err != nil {
			report.WarnErr(id, err)
			s.logger.Warn("skipping query drug", logging.String(logging.KeyDrugID, id), logging.Err(err))
			continue
		}
		queries = append(queries, profile{id: id, fp: fp})
	}

	m, err := s.score(ctx, refs, queries)
	if err != nil {
		return nil, report, err
	}
	report.OutputRows = len(m.RowIDs)
	s.finish(report, len(refs))
	return m, report, nil
}

func (s *serviceImpl) finish(report *ddi.StageReport, refs int) {
	stagelog.Finish(s.logger, "similarity profile computed", report,
		logging.Int("references", refs),
		logging.String("metric", string(s.scorer.Metric())))
}

func (s *serviceImpl) score(ctx context.Context, refs, queries []profile) (*ddi.Matrix, error) {
	cols := make([]string, len(refs))
	for j, r := range refs {
		cols[j] = r.id
	}
	m := ddi.NewMatrix(cols)
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "similarity cancelled")
		}
		row := make([]float64, len(refs))
		for j, r := range refs {
			row[j] = s.scorer.Score(r.fp, q.fp)
		}
		if err := m.AddRow(q.id, row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// loadDirectory fingerprints every structure file of dir in name order.  A
// drug's ID is the file name up to its first dot.  Unparseable files are
// skipped with a warning.
func (s *serviceImpl) loadDirectory(ctx context.Context, dir string, report *ddi.StageReport) ([]profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeArtifactNotFound, "structure directory not found").WithDetail(dir)
		}
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read structure directory").WithDetail(dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	start := time.Now()
	var out []profile
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if s.extensions != nil && !s.extensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "similarity cancelled")
		}
		id, _, _ := strings.Cut(name, ".")
		if seen[id] {
			report.Warn(errors.ErrCodeMalformedRecord, id, "duplicate structure file "+name)
			continue
		}
		seen[id] = true

		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIO, "read structure file").WithDetail(path)
		}
		fp, err := s.fingerprinter.Fingerprint(ctx, domainMol.Structure{ID: id, Format: domainMol.FormatMolfile, Source: string(src)})
		if err != nil {
			report.WarnErr(id, err)
			s.logger.Warn("skipping structure file", logging.String(logging.KeyPath, path), logging.Err(err))
			continue
		}
		out = append(out, profile{id: id, fp: fp})
	}
	s.logger.Debug("structure directory loaded",
		logging.String(logging.KeyPath, dir), logging.Rows(len(out)), logging.Elapsed(start))
	return out, nil
}

//Personal.AI order the ending
