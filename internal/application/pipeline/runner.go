package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/features"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/prediction"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/reporting"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/similarity"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/prometheus"
	minioinfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
	"github.com/turtacn/KeyDDI-Intelligence/internal/intelligence/reducer"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Run modes, also used as the metrics "mode" label.
const (
	ModeFull    = "full"
	ModeProfile = "profile"
)

// Options selects the inputs of one run.
type Options struct {
	OutputDir string
	InputFile string
	// ProfileFile is a reduced profile from an earlier run.  When set, the
	// similarity and reduction steps are skipped and the annotator falls
	// back to data.drug_similarity.
	ProfileFile string
	// RunID defaults to a random UUID.
	RunID string
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Mode      string
	Files     []string
	Reports   []*ddi.StageReport
	Annotated []ddi.AnnotatedRow
	Published []minioinfra.PublishedObject
	Events    int
	Elapsed   time.Duration
}

// WarningCount is the number of warnings over every stage.
func (r *Result) WarningCount() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.Warnings)
	}
	return n
}

// Runner executes the whole pipeline for one candidate file.
type Runner struct {
	cfg    *config.Config
	infra  *Infrastructure
	logger logging.Logger

	newRunID func() string
	now      func() time.Time
}

// NewRunner creates a Runner.  infra may be nil.
func NewRunner(cfg *config.Config, infra *Infrastructure, logger logging.Logger) *Runner {
	if infra == nil {
		infra = &Infrastructure{}
	}
	return &Runner{
		cfg:      cfg,
		infra:    infra,
		logger:   logging.OrNop(logger).Named("pipeline"),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// Run executes similarity, reduction, pair assembly, prediction,
// summarization and annotation in order.  Every required artifact is checked,
// and every classifier label matched to a template, before the first stage
// starts.  Recoverable conditions never stop a run;
// they are collected on the stage reports and written to warnings.tsv.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.OutputDir == "" || opts.InputFile == "" {
		return nil, errors.InvalidParam("output directory and input file are required")
	}
	res := &Result{RunID: opts.RunID, Mode: ModeFull}
	if res.RunID == "" {
		res.RunID = r.newRunID()
	}
	need := config.NeedFullRun
	if opts.ProfileFile != "" {
		res.Mode = ModeProfile
		need = config.NeedProfileRun
	}
	start := r.now()
	logger := r.logger.With(logging.String(logging.KeyRunID, res.RunID))
	logger.Info("run started",
		logging.String("mode", res.Mode),
		logging.String("input", opts.InputFile),
		logging.String("output_dir", opts.OutputDir))

	if err := r.cfg.ValidateArtifacts(need); err != nil {
		return nil, err
	}
	policy, err := domainDDI.ParseSubstitutionPolicy(r.cfg.Pipeline.SubstitutionPolicy)
	if err != nil {
		return nil, err
	}
	templates, err := LoadTemplates(r.cfg.Data.InteractionInfo)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabelBinarizer(r.cfg.Model.LabelBinarizer)
	if err != nil {
		return nil, err
	}
	if err := CheckLabelCoverage(labels, templates, logger); err != nil {
		return nil, err
	}
	known, err := LoadKnownDDI(r.cfg.Data.KnownDDI)
	if err != nil {
		return nil, err
	}
	targets, err := LoadDrugTargets(r.cfg.Data.DrugInfo)
	if err != nil {
		return nil, err
	}

	pairs, inputReport, err := ReadCandidates(opts.InputFile)
	if err != nil {
		return nil, err
	}
	r.record(res, inputReport)

	var reduced, sim *ddi.Matrix
	if res.Mode == ModeFull {
		if sim, err = r.similarity(ctx, res, pairs, logger); err != nil {
			return res, err
		}
		if err := r.checkpoint(res, opts.OutputDir, tabular.SimilarityProfileFile, matrixWriter(sim)); err != nil {
			return res, err
		}
		pca, err := LoadPCA(r.cfg.Model.PCA)
		if err != nil {
			return res, err
		}
		red, report, err := Reduce(pca, sim, logger)
		r.record(res, report)
		if err != nil {
			return res, err
		}
		reduced = red
		if err := r.checkpoint(res, opts.OutputDir, tabular.ReducedProfileFile, matrixWriter(reduced)); err != nil {
			return res, err
		}
	} else {
		if reduced, err = ReadMatrix(opts.ProfileFile); err != nil {
			return nil, err
		}
		if sim, err = ReadMatrix(r.cfg.Data.DrugSimilarity); err != nil {
			return nil, err
		}
	}

	pairFeatures, report, err := features.NewAssembler(logger).Assemble(ctx, pairs, reduced)
	r.record(res, report)
	if err != nil {
		return res, err
	}
	if err := r.checkpoint(res, opts.OutputDir, tabular.PairFeatureFile, matrixWriter(pairFeatures)); err != nil {
		return res, err
	}

	model, err := OpenClassifier(r.cfg.Model, r.cfg.Pipeline.PredictionThreshold, logger)
	if err != nil {
		return res, err
	}
	defer model.Close()
	preds, report, err := prediction.NewService(model, logger).Predict(ctx, pairFeatures)
	r.record(res, report)
	if err != nil {
		return res, err
	}
	if err := r.checkpoint(res, opts.OutputDir, tabular.PredictionFile, func(w io.Writer) error {
		return tabular.WritePredictions(w, preds)
	}); err != nil {
		return res, err
	}

	summary, report, err := reporting.NewSummarizer(templates, policy, logger).Summarize(ctx, preds)
	r.record(res, report)
	if err != nil {
		return res, err
	}
	prometheus.RecordSummary(r.infra.Metrics, summary)
	if err := r.output(res, opts.OutputDir, tabular.SummaryFile, func(w io.Writer) error {
		return tabular.WriteSummary(w, summary)
	}); err != nil {
		return res, err
	}

	annotator := reporting.NewAnnotator(reporting.AnnotatorTables{Known: known, Targets: targets},
		r.cfg.Pipeline.AnnotationThreshold, logger)
	res.Annotated, report, err = annotator.Annotate(ctx, summary, sim)
	r.record(res, report)
	if err != nil {
		return res, err
	}
	if err := r.output(res, opts.OutputDir, tabular.AnnotatedFile, func(w io.Writer) error {
		return tabular.WriteAnnotated(w, res.Annotated)
	}); err != nil {
		return res, err
	}
	if err := r.output(res, opts.OutputDir, tabular.WarningsFile, func(w io.Writer) error {
		return tabular.WriteWarnings(w, res.Reports...)
	}); err != nil {
		return res, err
	}

	res.Elapsed = r.now().Sub(start)
	prometheus.RecordRun(r.infra.Metrics, res.RunID, res.Mode, res.Elapsed)
	if r.infra.Collector != nil {
		path := filepath.Join(opts.OutputDir, tabular.MetricsFile)
		if err := r.infra.Collector.WriteTextfile(path); err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
	}

	if err := r.publish(ctx, res, logger); err != nil {
		return res, err
	}

	logger.Info("run finished",
		logging.String("mode", res.Mode),
		logging.Int("predictions", len(res.Annotated)),
		logging.Int("warnings", res.WarningCount()),
		logging.Duration(logging.KeyElapsed, res.Elapsed))
	return res, nil
}

// similarity fingerprints the candidate drugs against the reference set.
func (r *Runner) similarity(ctx context.Context, res *Result, pairs []ddi.CandidatePair, logger logging.Logger) (*ddi.Matrix, error) {
	svc, err := NewSimilarityService(r.cfg.Pipeline, r.infra.Cache, logger)
	if err != nil {
		return nil, err
	}
	m, report, err := svc.CompareCandidates(ctx, r.cfg.Data.ReferenceDir, pairs)
	r.record(res, report)
	return m, err
}

func (r *Runner) publish(ctx context.Context, res *Result, logger logging.Logger) error {
	if r.infra.Publisher != nil {
		objs, err := r.infra.Publisher.Publish(ctx, res.RunID, res.Files)
		res.Published = objs
		if err != nil {
			return err
		}
		logger.Info("artifacts published", logging.Int("objects", len(objs)))
	}
	if r.infra.Events != nil {
		n, err := r.infra.Events.PublishAnnotated(ctx, res.RunID, res.Annotated)
		res.Events = n
		if err != nil {
			return err
		}
		logger.Info("prediction events published", logging.Int("events", n))
	}
	return nil
}

func (r *Runner) record(res *Result, report *ddi.StageReport) {
	if report == nil {
		return
	}
	res.Reports = append(res.Reports, report)
	prometheus.RecordStage(r.infra.Metrics, report)
}

// checkpoint writes an intermediate table when checkpointing is enabled.
func (r *Runner) checkpoint(res *Result, dir, name string, fn func(io.Writer) error) error {
	if !r.cfg.Pipeline.Checkpoint {
		return nil
	}
	return r.output(res, dir, name, fn)
}

func (r *Runner) output(res *Result, dir, name string, fn func(io.Writer) error) error {
	path := filepath.Join(dir, name)
	if err := tabular.WriteFile(path, fn); err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	return nil
}

func matrixWriter(m *ddi.Matrix) func(io.Writer) error {
	return func(w io.Writer) error { return tabular.WriteMatrixCSV(w, m) }
}

// ─────────────────────────────────────────────────────────────────────────────
// Stage constructors shared with the stage-level commands
// ─────────────────────────────────────────────────────────────────────────────

// NewSimilarityService builds the similarity engine for cfg.  repo may be nil.
func NewSimilarityService(cfg config.PipelineConfig, repo molecule.FingerprintRepository, logger logging.Logger) (similarity.Service, error) {
	metric, err := molecule.ParseSimilarityMetric(cfg.SimilarityMetric)
	if err != nil {
		return nil, err
	}
	scorer, err := molecule.NewScorer(metric)
	if err != nil {
		return nil, err
	}
	fp := molecule.NewService(repo, molecule.ServiceOptions{
		Radius:       cfg.FingerprintRadius,
		AddHydrogens: cfg.AddHydrogens,
	}, logger)
	return similarity.NewService(fp, similarity.Options{Scorer: scorer, Extensions: cfg.StructureExtensions}, logger), nil
}

// Reduce projects a similarity matrix and reports it as a stage.
func Reduce(pca *reducer.PCA, sim *ddi.Matrix, logger logging.Logger) (*ddi.Matrix, *ddi.StageReport, error) {
	report := ddi.NewStageReport(ReduceStage)
	report.InputRows, _ = sim.Dims()
	out, err := pca.Transform(sim)
	if err != nil {
		report.Finish()
		return nil, report, err
	}
	report.OutputRows, _ = out.Dims()
	stagelog.Finish(logging.OrNop(logger).Named(ReduceStage), "similarity profile reduced", report,
		logging.Int("components", pca.NComponents))
	return out, report, nil
}

//Personal.AI order the ending
