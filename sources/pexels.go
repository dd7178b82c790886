package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Pexels searches the Pexels video library
type Pexels struct {
	apiKey     string
	baseURL    string
	perPage    int
	httpClient *http.Client
}

// NewPexels creates a Pexels provider
func NewPexels(apiKey string, perPage int) *Pexels {
	return &Pexels{
		apiKey:     apiKey,
		baseURL:    "https://api.pexels.com/videos",
		perPage:    perPage,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsVideoFile struct {
	Link   string `json:"link"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pexelsVideo struct {
	ID         int               `json:"id"`
	Duration   float64           `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

func (p *Pexels) Search(ctx context.Context, term string, minDuration float64) ([]Candidate, error) {
	q := url.Values{}
	q.Set("query", term)
	q.Set("per_page", strconv.Itoa(p.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels search: status %d", resp.StatusCode)
	}

	var parsed pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse pexels response: %w", err)
	}

	var out []Candidate
	for _, v := range parsed.Videos {
		if minDuration > 0 && v.Duration < minDuration {
			continue
		}
		best, ok := bestRendition(v.VideoFiles)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			ID:       strconv.Itoa(v.ID),
			Duration: v.Duration,
			URL:      best.Link,
			Width:    best.Width,
			Height:   best.Height,
		})
	}
	return out, nil
}

// bestRendition picks the variant with the greatest pixel area
func bestRendition(files []pexelsVideoFile) (pexelsVideoFile, bool) {
	var best pexelsVideoFile
	found := false
	for _, f := range files {
		if f.Link == "" {
			continue
		}
		if !found || f.Width*f.Height > best.Width*best.Height {
			best = f
			found = true
		}
	}
	return best, found
}

func (p *Pexels) Download(ctx context.Context, c Candidate, destPath string) error {
	return download(ctx, p.httpClient, c.URL, destPath, nil)
}
