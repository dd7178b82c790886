package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ErrNoCandidates means a provider returned nothing long enough for the scene
var ErrNoCandidates = errors.New("no suitable candidates")

// Request describes the clip a scene needs
type Request struct {
	// Term is the stock-search keyword; Prompt drives generative providers
	Term        string
	Prompt      string
	MinDuration float64
	AspectRatio string
}

// Candidate is an unacquired provider clip reference
type Candidate struct {
	ID       string
	Duration float64
	URL      string
	Width    int
	Height   int
}

// Adapter acquires one clip per scene from a single provider
type Adapter interface {
	Name() string
	// Fetch materializes a clip satisfying req at destPath. It returns
	// ErrNoCandidates (possibly wrapped) when the provider has nothing
	// suitable; any failure leaves no file the caller must clean up.
	Fetch(ctx context.Context, req Request, destPath string) error
}

// download streams a URL to destPath, removing the partial file on failure
func download(ctx context.Context, client *http.Client, url, destPath string, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: status %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return f.Close()
}
