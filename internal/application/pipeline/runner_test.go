package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/prometheus"
	minioinfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
	"github.com/turtacn/KeyDDI-Intelligence/internal/intelligence/classifier"
	"github.com/turtacn/KeyDDI-Intelligence/internal/testutil"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

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

const methylamineMol = `methylamine
  ddichecker

  2  1  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 N   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
M  END
`

// sigmoid(2), the probability every pair gets for the first label.
const firstLabelScore = 0.8807970779778823

type fixture struct {
	cfg    *config.Config
	input  string
	output string
}

// newFixture lays out a complete artifact set.  The projection maps every
// profile to zero and the network ignores its input, so label "1" fires for
// every assembled pair with probability sigmoid(2) and label "2" never does.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	refs := filepath.Join(data, "refs")
	testutil.WriteFile(t, filepath.Join(refs, "R1.mol"), ethanolMol)
	testutil.WriteFile(t, filepath.Join(refs, "R2.mol"), methylamineMol)

	cfg := config.Default()
	cfg.Data = config.DataConfig{
		ReferenceDir: refs,
		InteractionInfo: testutil.WriteFile(t, filepath.Join(data, "Interaction_information.csv"),
			"interaction_type,sentence,subject,new_interaction_type\n"+
				"1,#Drug1 may increase the sedative activities of #Drug2.,1,10\n"+
				"2,#Drug2 can decrease the absorption of #Drug1.,2,20\n"),
		KnownDDI: testutil.WriteFile(t, filepath.Join(data, "DrugBank_known_ddi.txt"),
			"left_drug\tright_drug\tinteraction_type\nR1\tR2\t10\n"),
		DrugInfo: testutil.WriteFile(t, filepath.Join(data, "Approved_drug_Information.txt"),
			"R1\tEthanol\tx\tx\tx\tGABRA1\tx\tagonist\tyes\n"+
				"R2\tMethylamine\tx\tx\tx\tTAAR1\tx\tNone\tyes\n"),
		DrugSimilarity: testutil.WriteFile(t, filepath.Join(data, "drug_similarity.csv"),
			",R1,R2\nQ1,1,0.2\nQ2,0.1,0.9\n"),
	}
	cfg.Model.LabelBinarizer = testutil.WriteFile(t, filepath.Join(data, "binarizer.json"), `{"classes":["1","2"]}`)
	cfg.Model.Classifier = testutil.WriteFile(t, filepath.Join(data, "model.json"),
		`{"input_dim":4,"layers":[{"weights":[[0,0],[0,0],[0,0],[0,0]],"bias":[2,-2],"activation":"sigmoid"}]}`)
	cfg.Model.PCA = testutil.WriteFile(t, filepath.Join(data, "pca.json"),
		`{"n_features_in":2,"n_components":2,"mean":[0,0],"components":[[0,0],[0,0]],"whiten":false}`)
	cfg.Model.Backend = "dense"
	// Any positive ratio counts as similar.
	cfg.Pipeline.AnnotationThreshold = 1e-9
	require.NoError(t, cfg.Validate())

	input := testutil.WriteFile(t, filepath.Join(root, "input.txt"),
		"Q1\tCCO\tQ2\tCN\n"+
			"Q3\tC(C\tQ1\tCCO\n"+
			"short\tline\n")
	return &fixture{cfg: cfg, input: input, output: filepath.Join(root, "out")}
}

func newTestRunner(cfg *config.Config, infra *Infrastructure) *Runner {
	r := NewRunner(cfg, infra, logging.NewNopLogger())
	r.newRunID = func() string { return "run-1" }
	return r
}

func readOutput(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(b)
}

func TestRun_Full(t *testing.T) {
	fx := newFixture(t)
	res, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, ModeFull, res.Mode)

	// Q1/Q2 in both orders; Q3 fails to parse so its pair never assembles.
	require.Len(t, res.Annotated, 2)
	first := res.Annotated[0]
	assert.Equal(t, "Q1_Q2", first.Pair)
	assert.Equal(t, "10", first.InteractionType)
	assert.Equal(t, "Q1 may increase the sedative activities of Q2.", first.Sentence)
	assert.InDelta(t, firstLabelScore, first.Score, 1e-12)
	// R2 has no pharmacological action recorded, so only R1 is annotated.
	assert.Equal(t, []string{"R1(GABRA1)"}, first.LeftSimilar)
	assert.Empty(t, first.RightSimilar)
	assert.Equal(t, "Q2_Q1", res.Annotated[1].Pair)

	stages := make([]string, 0, len(res.Reports))
	for _, rep := range res.Reports {
		stages = append(stages, rep.Stage)
	}
	assert.Equal(t, []string{InputStage, "similarity", ReduceStage, "features", "predict", "summarize", "annotate"}, stages)

	codes := map[errors.ErrorCode]int{}
	for _, rep := range res.Reports {
		for code, n := range rep.WarningCounts() {
			codes[code] += n
		}
	}
	assert.Equal(t, 1, codes[errors.ErrCodeMalformedRecord])
	assert.Equal(t, 1, codes[errors.ErrCodeParseFailure])
	assert.Equal(t, 1, codes[errors.ErrCodeMissingFeatureVector])
	assert.Equal(t, res.WarningCount(), len(strings.Split(strings.TrimSpace(readOutput(t, fx.output, tabular.WarningsFile)), "\n"))-1)

	for _, name := range []string{
		tabular.SimilarityProfileFile, tabular.ReducedProfileFile, tabular.PairFeatureFile,
		tabular.PredictionFile, tabular.SummaryFile, tabular.AnnotatedFile, tabular.WarningsFile,
	} {
		assert.FileExists(t, filepath.Join(fx.output, name))
		assert.Contains(t, res.Files, filepath.Join(fx.output, name))
	}
	assert.NoFileExists(t, filepath.Join(fx.output, tabular.MetricsFile))

	// Similarity rows are the parsed query drugs, columns the references.
	sim := readOutput(t, fx.output, tabular.SimilarityProfileFile)
	assert.True(t, strings.HasPrefix(sim, ",R1,R2\nQ1,"), sim)
	assert.NotContains(t, sim, "Q3")

	assert.Equal(t, ",1_PC_1,1_PC_2,2_PC_1,2_PC_2\nQ1_Q2,0,0,0,0\nQ2_Q1,0,0,0,0\n",
		readOutput(t, fx.output, tabular.PairFeatureFile))

	annotated, err := tabular.ReadAnnotated(strings.NewReader(readOutput(t, fx.output, tabular.AnnotatedFile)))
	require.NoError(t, err)
	assert.Equal(t, res.Annotated[0].Pair, annotated[0].Pair)
}

func TestRun_ProfileResume(t *testing.T) {
	fx := newFixture(t)
	profile := testutil.WriteFile(t, filepath.Join(t.TempDir(), "profile.csv"), ",PC_1,PC_2\nQ1,0,0\nQ2,0,0\n")

	res, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{
		OutputDir:   fx.output,
		InputFile:   fx.input,
		ProfileFile: profile,
		RunID:       "resume",
	})
	require.NoError(t, err)
	assert.Equal(t, "resume", res.RunID)
	assert.Equal(t, ModeProfile, res.Mode)
	assert.NoFileExists(t, filepath.Join(fx.output, tabular.SimilarityProfileFile))
	assert.NoFileExists(t, filepath.Join(fx.output, tabular.ReducedProfileFile))

	// data.drug_similarity: Q1~R1 is 1, Q2~R2 is 0.9.
	require.Len(t, res.Annotated, 2)
	assert.Equal(t, []string{"R1(GABRA1)"}, res.Annotated[0].LeftSimilar)

	for _, rep := range res.Reports {
		assert.NotEqual(t, "similarity", rep.Stage)
		assert.NotEqual(t, ReduceStage, rep.Stage)
	}
}

func TestRun_ProfileDoesNotNeedReferences(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Data.ReferenceDir = filepath.Join(t.TempDir(), "absent")
	fx.cfg.Model.PCA = filepath.Join(t.TempDir(), "absent.json")
	profile := testutil.WriteFile(t, filepath.Join(t.TempDir(), "profile.csv"), ",PC_1,PC_2\nQ1,0,0\nQ2,0,0\n")

	_, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input, ProfileFile: profile})
	assert.NoError(t, err)
}

func TestRun_MissingArtifactsFailBeforeAnyStage(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Model.PCA = filepath.Join(t.TempDir(), "absent.json")
	fx.cfg.Data.KnownDDI = ""

	_, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
	assert.Contains(t, err.Error(), "model.pca")
	assert.Contains(t, err.Error(), "data.known_ddi")
	assert.NoDirExists(t, fx.output)
}

func TestRun_RequiresPaths(t *testing.T) {
	fx := newFixture(t)
	_, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{InputFile: fx.input})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRun_UnknownLabelIsFatal(t *testing.T) {
	fx := newFixture(t)
	testutil.WriteFile(t, fx.cfg.Data.InteractionInfo, "interaction_type,sentence,subject,new_interaction_type\n2,#Drug1 x #Drug2,1,20\n")

	res, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownInteractionLabel))
	assert.Contains(t, err.Error(), "1 of 2 classifier labels")
	assert.Nil(t, res)
	// The mismatch is caught before similarity runs.
	assert.NoDirExists(t, fx.output)
}

func TestCheckLabelCoverage(t *testing.T) {
	labels, err := classifier.NewLabelBinarizer([]string{"1", "2"})
	require.NoError(t, err)

	t.Run("every label has a template", func(t *testing.T) {
		logger := testutil.NewMockLogger()
		templates := domainDDI.NewTemplateTable(
			domainDDI.InteractionTemplate{Label: "1", InteractionType: "10"},
			domainDDI.InteractionTemplate{Label: "2", InteractionType: "20"},
			domainDDI.InteractionTemplate{Label: "3", InteractionType: "30"},
		)
		require.NoError(t, CheckLabelCoverage(labels, templates, logger))
		msg, ok := logger.Find("debug", "sentence templates without a classifier output")
		require.True(t, ok)
		unused, _ := msg.Field("labels")
		assert.Equal(t, "3", unused)
	})

	t.Run("missing templates are named", func(t *testing.T) {
		templates := domainDDI.NewTemplateTable(domainDDI.InteractionTemplate{Label: "2", InteractionType: "20"})
		err := CheckLabelCoverage(labels, templates, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownInteractionLabel))
		assert.Contains(t, err.Error(), ": 1")
	})
}

func TestRun_CheckpointDisabled(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Pipeline.Checkpoint = false

	res, err := newTestRunner(fx.cfg, nil).Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(fx.output, tabular.SimilarityProfileFile))
	assert.NoFileExists(t, filepath.Join(fx.output, tabular.PredictionFile))
	assert.Len(t, res.Files, 3)
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, runID string, files []string) ([]minioinfra.PublishedObject, error) {
	args := m.Called(ctx, runID, files)
	objs, _ := args.Get(0).([]minioinfra.PublishedObject)
	return objs, args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishAnnotated(ctx context.Context, runID string, rows []ddi.AnnotatedRow) (int, error) {
	args := m.Called(ctx, runID, rows)
	return args.Int(0), args.Error(1)
}

func TestRun_PublishesAndWritesMetrics(t *testing.T) {
	fx := newFixture(t)
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "ddichecker"}, nil)
	require.NoError(t, err)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, "run-1", mock.MatchedBy(func(files []string) bool {
		return len(files) == 8 && filepath.Base(files[7]) == tabular.MetricsFile
	})).Return([]minioinfra.PublishedObject{{Key: "runs/run-1/DDI_result.txt"}}, nil)
	events := &mockEvents{}
	events.On("PublishAnnotated", mock.Anything, "run-1", mock.AnythingOfType("[]ddi.AnnotatedRow")).Return(2, nil)

	infra := &Infrastructure{
		Publisher: pub,
		Events:    events,
		Collector: collector,
		Metrics:   prometheus.NewPipelineMetrics(collector),
	}
	r := newTestRunner(fx.cfg, infra)
	r.now = func() func() time.Time {
		t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		calls := 0
		return func() time.Time {
			calls++
			return t0.Add(time.Duration(calls-1) * 2 * time.Second)
		}
	}()

	res, err := r.Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.NoError(t, err)
	pub.AssertExpectations(t)
	events.AssertExpectations(t)
	assert.Equal(t, 2, res.Events)
	assert.Len(t, res.Published, 1)
	assert.Equal(t, 2*time.Second, res.Elapsed)

	text := readOutput(t, fx.output, tabular.MetricsFile)
	assert.Contains(t, text, `ddichecker_predictions_total{interaction_type="10"} 2`)
	assert.Contains(t, text, `ddichecker_warnings_total{code="DDI_001",stage="similarity"} 1`)
	assert.Contains(t, text, `ddichecker_run_info{mode="full",run_id="run-1"} 1`)
	assert.Contains(t, text, `ddichecker_run_duration_seconds{mode="full"} 2`)
}

func TestRun_PublishFailureKeepsFiles(t *testing.T) {
	fx := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeStorageError, "bucket gone"))

	res, err := newTestRunner(fx.cfg, &Infrastructure{Publisher: pub}).Run(context.Background(),
		Options{OutputDir: fx.output, InputFile: fx.input})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
	require.NotNil(t, res)
	assert.FileExists(t, filepath.Join(fx.output, tabular.AnnotatedFile))
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache accounting
// ─────────────────────────────────────────────────────────────────────────────

type mapRepository map[string]*molecule.Fingerprint

func (m mapRepository) Get(_ context.Context, key string) (*molecule.Fingerprint, error) {
	if fp, ok := m[key]; ok {
		return fp, nil
	}
	return nil, errors.NotFound("fingerprint " + key)
}

func (m mapRepository) Put(_ context.Context, key string, fp *molecule.Fingerprint) error {
	m[key] = fp
	return nil
}

func TestRun_CacheIsReusedAcrossRuns(t *testing.T) {
	fx := newFixture(t)
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "ddichecker"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewPipelineMetrics(collector)
	repo := mapRepository{}
	infra := &Infrastructure{
		Cache:     countingRepository{FingerprintRepository: repo, metrics: metrics},
		Collector: collector,
		Metrics:   metrics,
	}

	r := newTestRunner(fx.cfg, infra)
	_, err = r.Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.NoError(t, err)
	// Two references and two parsable queries were fingerprinted.
	assert.Len(t, repo, 4)

	_, err = r.Run(context.Background(), Options{OutputDir: fx.output, InputFile: fx.input})
	require.NoError(t, err)
	text := readOutput(t, fx.output, tabular.MetricsFile)
	// Q3 misses on both runs since it never parses.
	assert.Contains(t, text, `ddichecker_fingerprint_cache_accesses_total{result="hit"} 4`)
	assert.Contains(t, text, `ddichecker_fingerprint_cache_accesses_total{result="miss"} 6`)
}

//Personal.AI order the ending
