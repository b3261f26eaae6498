package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/features"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/pipeline"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/prediction"
	"github.com/turtacn/KeyDDI-Intelligence/internal/application/reporting"
	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// stageFlags are shared by every single-stage command.
type stageFlags struct {
	Input    string
	Output   string
	Warnings string
}

func (f *stageFlags) register(cmd *cobra.Command, inputHelp, outputHelp string) {
	cmd.Flags().StringVarP(&f.Input, "input", "i", "", inputHelp+" (required)")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", outputHelp+" (required)")
	cmd.Flags().StringVar(&f.Warnings, "warnings", "", "also write the stage warnings to this TSV file")
	cmd.MarkFlagRequired("output")
}

// finish writes the optional warnings file, renders the reports and prints
// the output path.
func (f *stageFlags) finish(cmd *cobra.Command, reports ...*ddi.StageReport) error {
	if f.Warnings != "" {
		if err := tabular.WriteFile(f.Warnings, func(w io.Writer) error {
			return tabular.WriteWarnings(w, reports...)
		}); err != nil {
			return err
		}
	}
	RenderReports(cmd.ErrOrStderr(), reports)
	PrintSuccess(cmd, f.Output)
	return nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return errors.InvalidParam("--" + name + " is required")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// similarity
// ─────────────────────────────────────────────────────────────────────────────

// NewSimilarityCmd scores structures against the reference set.
func NewSimilarityCmd() *cobra.Command {
	var (
		f            stageFlags
		referenceDir string
		queryDir     string
	)
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Compute the structural similarity profile",
		Long: "Similarity scores query structures against every reference structure.  Queries\n" +
			"are either the SMILES of a candidate pair file (--input) or the structure\n" +
			"files of a directory (--query-dir).  Rows of the output are query drugs,\n" +
			"columns are reference drugs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (f.Input == "") == (queryDir == "") {
				return errors.InvalidParam("exactly one of --input and --query-dir is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if referenceDir == "" {
				referenceDir = cliCtx.Config.Data.ReferenceDir
			}

			cache, closer := pipeline.OpenFingerprintCache(cliCtx.Config.Cache, nil, cliCtx.Logger)
			if closer != nil {
				defer closer()
			}
			svc, err := pipeline.NewSimilarityService(cliCtx.Config.Pipeline, cache, cliCtx.Logger)
			if err != nil {
				return err
			}

			var (
				m       *ddi.Matrix
				reports []*ddi.StageReport
			)
			if queryDir != "" {
				var rep *ddi.StageReport
				m, rep, err = svc.CompareDirectories(cmd.Context(), referenceDir, queryDir)
				reports = append(reports, rep)
			} else {
				pairs, inputRep, rerr := pipeline.ReadCandidates(f.Input)
				if rerr != nil {
					return rerr
				}
				var rep *ddi.StageReport
				m, rep, err = svc.CompareCandidates(cmd.Context(), referenceDir, pairs)
				reports = append(reports, inputRep, rep)
			}
			if err != nil {
				return err
			}
			if err := pipeline.WriteMatrix(f.Output, m); err != nil {
				return err
			}
			return f.finish(cmd, reports...)
		},
	}
	f.register(cmd, "candidate pair file whose SMILES are the queries", "similarity matrix CSV")
	cmd.Flags().StringVar(&referenceDir, "reference-dir", "", "reference structure directory (default: data.reference_dir)")
	cmd.Flags().StringVar(&queryDir, "query-dir", "", "directory of query structure files")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// reduce
// ─────────────────────────────────────────────────────────────────────────────

// NewReduceCmd projects a similarity matrix onto the PCA basis.
func NewReduceCmd() *cobra.Command {
	var (
		f       stageFlags
		pcaPath string
	)
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Project a similarity profile onto the fitted PCA basis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("input", f.Input); err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if pcaPath == "" {
				pcaPath = cliCtx.Config.Model.PCA
			}
			pca, err := pipeline.LoadPCA(pcaPath)
			if err != nil {
				return err
			}
			sim, err := pipeline.ReadMatrix(f.Input)
			if err != nil {
				return err
			}
			reduced, rep, err := pipeline.Reduce(pca, sim, cliCtx.Logger)
			if err != nil {
				return err
			}
			if err := pipeline.WriteMatrix(f.Output, reduced); err != nil {
				return err
			}
			return f.finish(cmd, rep)
		},
	}
	f.register(cmd, "similarity matrix CSV", "reduced profile CSV")
	cmd.Flags().StringVar(&pcaPath, "pca", "", "PCA artifact (default: model.pca)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// profile
// ─────────────────────────────────────────────────────────────────────────────

// NewProfileCmd assembles pair features from a reduced profile.
func NewProfileCmd() *cobra.Command {
	var (
		f       stageFlags
		reduced string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Assemble pair feature vectors from a reduced profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("input", f.Input); err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			pairs, inputRep, err := pipeline.ReadCandidates(f.Input)
			if err != nil {
				return err
			}
			table, err := pipeline.ReadMatrix(reduced)
			if err != nil {
				return err
			}
			m, rep, err := features.NewAssembler(cliCtx.Logger).Assemble(cmd.Context(), pairs, table)
			if err != nil {
				return err
			}
			if err := pipeline.WriteMatrix(f.Output, m); err != nil {
				return err
			}
			return f.finish(cmd, inputRep, rep)
		},
	}
	f.register(cmd, "candidate pair file", "pair feature CSV")
	cmd.Flags().StringVarP(&reduced, "pca-profile", "p", "", "reduced profile CSV (required)")
	cmd.MarkFlagRequired("pca-profile")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// predict
// ─────────────────────────────────────────────────────────────────────────────

// NewPredictCmd runs the classifier over a pair feature matrix.
func NewPredictCmd() *cobra.Command {
	var (
		f         stageFlags
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict interaction labels for a pair feature matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("input", f.Input); err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.Config.ValidateArtifacts(config.NeedClassifier | config.NeedONNXLibrary); err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cliCtx.Config.Pipeline.PredictionThreshold
			}
			if threshold <= 0 || threshold >= 1 {
				return errors.Newf(errors.CodeInvalidParam, "--threshold %g must be in (0, 1)", threshold)
			}

			m, err := pipeline.ReadMatrix(f.Input)
			if err != nil {
				return err
			}
			model, err := pipeline.OpenClassifier(cliCtx.Config.Model, threshold, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer model.Close()

			preds, rep, err := prediction.NewService(model, cliCtx.Logger).Predict(cmd.Context(), m)
			if err != nil {
				return err
			}
			if err := tabular.WriteFile(f.Output, func(w io.Writer) error {
				return tabular.WritePredictions(w, preds)
			}); err != nil {
				return err
			}
			return f.finish(cmd, rep)
		},
	}
	f.register(cmd, "pair feature CSV", "raw prediction TSV")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "probability threshold (default: pipeline.prediction_threshold)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// summarize
// ─────────────────────────────────────────────────────────────────────────────

// NewSummarizeCmd renders raw predictions as sentences.
func NewSummarizeCmd() *cobra.Command {
	var (
		f      stageFlags
		policy string
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Render raw predictions as interaction sentences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("input", f.Input); err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if policy == "" {
				policy = cliCtx.Config.Pipeline.SubstitutionPolicy
			}
			p, err := domainDDI.ParseSubstitutionPolicy(policy)
			if err != nil {
				return err
			}
			templates, err := pipeline.LoadTemplates(cliCtx.Config.Data.InteractionInfo)
			if err != nil {
				return err
			}
			var preds []ddi.Prediction
			if err := tabular.ReadFile(f.Input, func(r io.Reader) error {
				preds, err = tabular.ReadPredictions(r)
				return err
			}); err != nil {
				return err
			}

			rows, rep, err := reporting.NewSummarizer(templates, p, cliCtx.Logger).Summarize(cmd.Context(), preds)
			if err != nil {
				return err
			}
			if err := tabular.WriteFile(f.Output, func(w io.Writer) error {
				return tabular.WriteSummary(w, rows)
			}); err != nil {
				return err
			}
			return f.finish(cmd, rep)
		},
	}
	f.register(cmd, "raw prediction TSV", "summary TSV")
	cmd.Flags().StringVar(&policy, "policy", "", "substitution policy: lexical|subject (default: pipeline.substitution_policy)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// annotate
// ─────────────────────────────────────────────────────────────────────────────

// NewAnnotateCmd attaches similar approved drugs to summarized predictions.
func NewAnnotateCmd() *cobra.Command {
	var (
		f          stageFlags
		similarity string
		threshold  float64
	)
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Annotate predictions with similar approved drugs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("input", f.Input); err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if similarity == "" {
				similarity = cfg.Data.DrugSimilarity
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Pipeline.AnnotationThreshold
			}
			if err := cfg.ValidateArtifacts(config.NeedAnnotation); err != nil {
				return err
			}

			known, err := pipeline.LoadKnownDDI(cfg.Data.KnownDDI)
			if err != nil {
				return err
			}
			targets, err := pipeline.LoadDrugTargets(cfg.Data.DrugInfo)
			if err != nil {
				return err
			}
			sim, err := pipeline.ReadMatrix(similarity)
			if err != nil {
				return err
			}
			var rows []ddi.SummaryRow
			if err := tabular.ReadFile(f.Input, func(r io.Reader) error {
				rows, err = tabular.ReadSummary(r)
				return err
			}); err != nil {
				return err
			}

			annotated, rep, err := reporting.NewAnnotator(reporting.AnnotatorTables{Known: known, Targets: targets}, threshold, cliCtx.Logger).
				Annotate(cmd.Context(), rows, sim)
			if err != nil {
				return err
			}
			if err := tabular.WriteFile(f.Output, func(w io.Writer) error {
				return tabular.WriteAnnotated(w, annotated)
			}); err != nil {
				return err
			}
			return f.finish(cmd, rep)
		},
	}
	f.register(cmd, "summary TSV", "annotated TSV")
	cmd.Flags().StringVarP(&similarity, "similarity", "s", "", "similarity matrix CSV (default: data.drug_similarity)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold (default: pipeline.annotation_threshold)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// validate
// ─────────────────────────────────────────────────────────────────────────────

// NewValidateCmd checks configuration and artifacts without running anything.
// Beyond existence it loads the sentence templates and the label binarizer
// and checks that every classifier label has a template.
func NewValidateCmd() *cobra.Command {
	var profile bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and every artifact a run needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			need, mode := config.NeedFullRun, pipeline.ModeFull
			if profile {
				need, mode = config.NeedProfileRun, pipeline.ModeProfile
			}
			if err := cliCtx.Config.ValidateArtifacts(need); err != nil {
				return err
			}
			templates, err := pipeline.LoadTemplates(cliCtx.Config.Data.InteractionInfo)
			if err != nil {
				return err
			}
			labels, err := pipeline.LoadLabelBinarizer(cliCtx.Config.Model.LabelBinarizer)
			if err != nil {
				return err
			}
			if err := pipeline.CheckLabelCoverage(labels, templates, cliCtx.Logger); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("configuration valid for a %s run", mode))
			return nil
		},
	}
	cmd.Flags().BoolVar(&profile, "profile", false, "validate for a run from a precomputed reduced profile")
	return cmd
}

//Personal.AI order the ending
