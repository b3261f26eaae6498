package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/pipeline"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	OutputDir   string
	InputFile   string
	ProfileFile string
	RunID       string
}

// NewRunCmd creates the end-to-end pipeline command.
func NewRunCmd() *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Predict interactions for every candidate drug pair",
		Long: "Run computes the similarity profile of every candidate drug, reduces it,\n" +
			"assembles pair features, predicts interaction types, and writes the\n" +
			"summarized and annotated results to the output directory.  With\n" +
			"--pca-profile a reduced profile from an earlier run is reused and the\n" +
			"similarity and reduction steps are skipped.",
		Example: "  ddichecker run -o ./result -i ./input/DDI_input.txt\n" +
			"  ddichecker run -o ./result -i ./input/DDI_input.txt -p ./result/PCA_transformed_similarity_profile.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.OutputDir, "output-dir", "o", "", "output directory (required)")
	f.StringVarP(&opts.InputFile, "input-file", "i", "", "tab-separated candidate pair file: drug1, smiles1, drug2, smiles2 (required)")
	f.StringVarP(&opts.ProfileFile, "pca-profile", "p", "", "precomputed reduced profile; skips similarity and reduction")
	f.StringVar(&opts.RunID, "run-id", "", "run identifier (default: random UUID)")
	cmd.MarkFlagRequired("output-dir")
	cmd.MarkFlagRequired("input-file")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	infra, err := pipeline.OpenInfrastructure(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			cliCtx.Logger.Warn("closing infrastructure", logging.Err(err))
		}
	}()

	res, err := pipeline.NewRunner(cliCtx.Config, infra, cliCtx.Logger).Run(ctx, pipeline.Options{
		OutputDir:   opts.OutputDir,
		InputFile:   opts.InputFile,
		ProfileFile: opts.ProfileFile,
		RunID:       opts.RunID,
	})
	if res != nil && len(res.Reports) > 0 {
		RenderReports(cmd.ErrOrStderr(), res.Reports)
	}
	if err != nil {
		return err
	}

	if n := res.WarningCount(); n > 0 {
		PrintWarning(cmd, fmt.Sprintf("%d warnings recorded in %s", n, filepath.Join(opts.OutputDir, tabular.WarningsFile)))
	}
	for _, f := range res.Files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	PrintSuccess(cmd, fmt.Sprintf("run %s: %d predictions in %s", res.RunID, len(res.Annotated), res.Elapsed.Round(time.Millisecond)))
	return nil
}

//Personal.AI order the ending
