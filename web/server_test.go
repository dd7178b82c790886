package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts-pipeline/assemble"
	"shorts-pipeline/config"
	"shorts-pipeline/pipeline"
	"shorts-pipeline/types"
)

type fakeRunner struct {
	result *pipeline.Result
	err    error
	got    pipeline.Request
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.got = req
	return f.result, f.err
}

func newTestServer(t *testing.T, runner Runner) (*Server, string) {
	t.Helper()
	outDir := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.Output = outDir
	return NewServer(cfg, runner), outDir
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &pipeline.Result{
		RunID:      "abc123",
		Filename:   "[tts][pexels] Facts.mp4",
		OutputPath: filepath.Join(t.TempDir(), "[tts][pexels] Facts.mp4"),
		Title:      &types.TitleInfo{Title: "Facts"},
		Report:     &assemble.Report{Total: 2, Ready: []int{1, 2}},
	}}
	srv, _ := newTestServer(t, runner)

	body := strings.NewReader(`{"topic": "deep sea", "video_source": "pexels", "upload": true}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RunID       string           `json:"run_id"`
		Title       *types.TitleInfo `json:"title"`
		DownloadURL string           `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp.RunID)
	require.NotNil(t, resp.Title)
	assert.Equal(t, "Facts", resp.Title.Title)
	assert.Equal(t, "/download/[tts][pexels] Facts.mp4", resp.DownloadURL)

	assert.Equal(t, "deep sea", runner.got.Topic)
	assert.Equal(t, "pexels", runner.got.VideoSource)
	assert.True(t, runner.got.Upload)
}

func TestGenerateNoScenesReadyIs422(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		result: &pipeline.Result{RunID: "abc123", Report: &assemble.Report{Total: 2}},
		err:    assemble.ErrNoScenesReady,
	}
	srv, _ := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"topic": "x"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no scenes could be produced")
	assert.NotContains(t, rec.Body.String(), "download_url")
}

func TestGenerateRunnerErrorIs500(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: assert.AnError}
	srv, _ := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"topic": "x"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenerateBadBodyIs400(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadServesFile(t *testing.T) {
	t.Parallel()

	srv, outDir := newTestServer(t, &fakeRunner{})
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "ready.mp4"), []byte("video"), 0644))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/ready.mp4", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ready.mp4")
}

func TestDownloadMissingFileIs404(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/gone.mp4", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadSanitizesTraversal(t *testing.T) {
	t.Parallel()

	srv, outDir := newTestServer(t, &fakeRunner{})
	// a file outside the output dir must stay unreachable
	secret := filepath.Join(filepath.Dir(outDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0644))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/..%2Fsecret.txt", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
