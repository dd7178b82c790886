package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts-pipeline/config"
	"shorts-pipeline/media"
	"shorts-pipeline/sources"
)

// fakeAdapter writes a placeholder clip unless the search term is marked as
// failing
type fakeAdapter struct {
	failTerms map[string]bool
	requests  []sources.Request
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Fetch(ctx context.Context, req sources.Request, destPath string) error {
	f.requests = append(f.requests, req)
	if f.failTerms[req.Term] {
		return fmt.Errorf("%w for %q", sources.ErrNoCandidates, req.Term)
	}
	return os.WriteFile(destPath, []byte("clip"), 0644)
}

func testConfig() *config.Config {
	return &config.Config{
		Video: config.VideoConfig{
			OutputWidth:  1080,
			OutputHeight: 1920,
			FPS:          30,
			ToleranceSec: 0.1,
		},
		Sources: config.SourcesConfig{LumaAspectRatio: "9:16"},
	}
}

// newFixture lays out an audio dir with one narration file per scene and a
// stub toolchain that knows every file the run will probe
func newFixture(t *testing.T, audioSecs []float64, rawSecs map[int]float64) (*media.Stub, *fakeAdapter, string, string) {
	t.Helper()
	root := t.TempDir()
	audioDir := filepath.Join(root, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0755))

	stub := media.NewStub()
	for i, sec := range audioSecs {
		name := fmt.Sprintf("scene_%d.mp3", i+1)
		require.NoError(t, os.WriteFile(filepath.Join(audioDir, name), []byte("audio"), 0644))
		stub.Durations[name] = sec
	}
	for idx, sec := range rawSecs {
		raw := fmt.Sprintf("scene_%d_raw.mp4", idx)
		stub.Durations[raw] = sec
		stub.Dims[raw] = [2]int{1920, 1080}
	}
	return stub, &fakeAdapter{failTerms: map[string]bool{}}, audioDir, root
}

func TestAssembleSkipsFailingSceneAndRendersRest(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t,
		[]float64{5.0, 5.0, 4.0},
		map[int]float64{1: 9.0, 3: 2.0},
	)
	adapter.failTerms["volcano"] = true

	cfg := testConfig()
	scratch := filepath.Join(root, "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0755))
	outputPath := filepath.Join(root, "final.mp4")

	p := New(cfg, stub, adapter, scratch)
	report, err := p.Assemble(context.Background(),
		[]string{"scene one", "scene two", "scene three"},
		[]string{"ocean", "volcano", "forest"},
		audioDir, outputPath)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []int{1, 3}, report.Ready)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 2, report.Skipped[0].Index)
	assert.Equal(t, StateAudioLoaded, report.Skipped[0].State)
	assert.Contains(t, report.Skipped[0].Reason, "volcano")
	assert.Equal(t, outputPath, report.Output)

	// the output made it into place and only the output survives: scene
	// intermediates and the concat file are cleaned up with the run
	assert.FileExists(t, outputPath)
	assert.NoFileExists(t, filepath.Join(scratch, "video"))
	assert.NoFileExists(t, filepath.Join(scratch, "render_concat.mp4"))

	// narration files belong to the audio stage and must survive assembly
	for i := 1; i <= 3; i++ {
		assert.FileExists(t, filepath.Join(audioDir, fmt.Sprintf("scene_%d.mp3", i)))
	}

	// scene 1 was longer than its narration (trim), scene 3 shorter (stretch)
	assert.Contains(t, stub.Calls, "trim")
	assert.Contains(t, stub.Calls, "stretch")
	assert.Contains(t, stub.Calls, "concat n=2")

	// adapter was asked for clips at least as long as the narration
	require.Len(t, adapter.requests, 3)
	assert.Equal(t, 5.0, adapter.requests[0].MinDuration)
	assert.Equal(t, "9:16", adapter.requests[0].AspectRatio)
}

func TestAssembleEverySceneSkipped(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, []float64{5.0, 5.0}, nil)
	adapter.failTerms["a"] = true
	adapter.failTerms["b"] = true

	outputPath := filepath.Join(root, "final.mp4")
	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	report, err := p.Assemble(context.Background(), []string{"s1", "s2"}, []string{"a", "b"}, audioDir, outputPath)

	require.ErrorIs(t, err, ErrNoScenesReady)
	assert.Empty(t, report.Ready)
	assert.Len(t, report.Skipped, 2)
	assert.Empty(t, report.Output)
	assert.NoFileExists(t, outputPath)
}

func TestAssembleMissingAudioSkipsScene(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, []float64{5.0}, map[int]float64{1: 6.0})

	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	report, err := p.Assemble(context.Background(),
		[]string{"s1", "s2"}, []string{"ocean", "ocean"},
		audioDir, filepath.Join(root, "final.mp4"))
	require.NoError(t, err)

	// scene 2 has no scene_2.mp3 and never leaves the pending state
	assert.Equal(t, []int{1}, report.Ready)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 2, report.Skipped[0].Index)
	assert.Equal(t, StatePending, report.Skipped[0].State)
}

func TestAssembleConcatFailureIsRenderError(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, []float64{5.0}, map[int]float64{1: 6.0})
	stub.FailOn = "concat"

	outputPath := filepath.Join(root, "final.mp4")
	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	report, err := p.Assemble(context.Background(), []string{"s1"}, []string{"ocean"}, audioDir, outputPath)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []int{1}, rerr.Report.Ready)
	assert.Contains(t, rerr.Error(), "1/1 scenes ready")
	assert.Same(t, report, rerr.Report)
	assert.NoFileExists(t, outputPath)
}

func TestAssembleFinalizeFailureLeavesNoPartialOutput(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, []float64{5.0}, map[int]float64{1: 6.0})
	stub.FailOn = "finalize"

	outDir := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	outputPath := filepath.Join(outDir, "final.mp4")

	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	_, err := p.Assemble(context.Background(), []string{"s1"}, []string{"ocean"}, audioDir, outputPath)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)

	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "destination dir must not hold temp files after a failed finalize")
}

func TestAssembleNoScenesIsAnError(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, nil, nil)

	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	_, err := p.Assemble(context.Background(), nil, nil, audioDir, filepath.Join(root, "final.mp4"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoScenesReady)
}

func TestAssembleTermFallback(t *testing.T) {
	stub, adapter, audioDir, root := newFixture(t, []float64{5.0}, map[int]float64{1: 6.0})

	p := New(testConfig(), stub, adapter, filepath.Join(root, "scratch"))
	_, err := p.Assemble(context.Background(), []string{"s1"}, nil, audioDir, filepath.Join(root, "final.mp4"))
	require.NoError(t, err)

	require.Len(t, adapter.requests, 1)
	assert.Equal(t, "generic", adapter.requests[0].Term)
}
