package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	hits       []Candidate
	searchErr  error
	downloaded []Candidate
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(ctx context.Context, term string, minDuration float64) ([]Candidate, error) {
	// deliberately ignores minDuration: the adapter must re-validate
	return f.hits, f.searchErr
}

func (f *fakeProvider) Download(ctx context.Context, c Candidate, destPath string) error {
	f.downloaded = append(f.downloaded, c)
	return os.WriteFile(destPath, []byte("video"), 0644)
}

func TestStockAdapterFiltersShortCandidatesAndPicksFirst(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{hits: []Candidate{
		{ID: "a", Duration: 3.0},
		{ID: "b", Duration: 7.0},
		{ID: "c", Duration: 12.0},
	}}
	a := NewStockAdapter(p)

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	err := a.Fetch(context.Background(), Request{Term: "ocean", MinDuration: 6.0}, dest)
	require.NoError(t, err)

	// provider relevance order is trusted: first suitable hit wins
	require.Len(t, p.downloaded, 1)
	assert.Equal(t, "b", p.downloaded[0].ID)

	_, statErr := os.Stat(dest)
	assert.NoError(t, statErr)
}

func TestStockAdapterNoSuitableCandidates(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{hits: []Candidate{{ID: "a", Duration: 3.0}}}
	a := NewStockAdapter(p)

	err := a.Fetch(context.Background(), Request{Term: "ocean", MinDuration: 6.0}, filepath.Join(t.TempDir(), "clip.mp4"))
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Empty(t, p.downloaded)
}

func TestStockAdapterEmptyResults(t *testing.T) {
	t.Parallel()

	a := NewStockAdapter(&fakeProvider{})
	err := a.Fetch(context.Background(), Request{Term: "ocean", MinDuration: 1.0}, filepath.Join(t.TempDir(), "clip.mp4"))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestStockAdapterSearchErrorPropagates(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{searchErr: errors.New("rate limited")}
	a := NewStockAdapter(p)

	err := a.Fetch(context.Background(), Request{Term: "ocean", MinDuration: 1.0}, filepath.Join(t.TempDir(), "clip.mp4"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCandidates)
}
