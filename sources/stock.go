package sources

import (
	"context"
	"fmt"
	"log"
)

// StockProvider is one searchable clip library. Search applies the provider's
// own duration filter where the API supports it, but results are not
// guaranteed to honor it.
type StockProvider interface {
	Name() string
	Search(ctx context.Context, term string, minDuration float64) ([]Candidate, error)
	Download(ctx context.Context, c Candidate, destPath string) error
}

// StockAdapter runs the shared select-and-acquire pipeline over any
// StockProvider: search, re-validate durations, trust provider relevance
// order for the final pick, download.
type StockAdapter struct {
	provider StockProvider
}

// NewStockAdapter wraps a provider in the shared acquisition pipeline
func NewStockAdapter(p StockProvider) *StockAdapter {
	return &StockAdapter{provider: p}
}

func (a *StockAdapter) Name() string {
	return a.provider.Name()
}

func (a *StockAdapter) Fetch(ctx context.Context, req Request, destPath string) error {
	hits, err := a.provider.Search(ctx, req.Term, req.MinDuration)
	if err != nil {
		return fmt.Errorf("%s search %q: %w", a.provider.Name(), req.Term, err)
	}

	// The provider's minDuration filter is advisory, re-validate here
	var suitable []Candidate
	for _, h := range hits {
		if h.Duration >= req.MinDuration {
			suitable = append(suitable, h)
		}
	}
	if len(suitable) == 0 {
		return fmt.Errorf("%s %q (>= %.1fs): %w", a.provider.Name(), req.Term, req.MinDuration, ErrNoCandidates)
	}

	pick := suitable[0]
	log.Printf("[sources] %s: picked %s (%.1fs, %dx%d) for %q",
		a.provider.Name(), pick.ID, pick.Duration, pick.Width, pick.Height, req.Term)

	if err := a.provider.Download(ctx, pick, destPath); err != nil {
		return fmt.Errorf("%s download %s: %w", a.provider.Name(), pick.ID, err)
	}
	return nil
}
