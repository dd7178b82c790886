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

// Pixabay searches the Pixabay video library
type Pixabay struct {
	apiKey     string
	baseURL    string
	perPage    int
	safeSearch bool
	httpClient *http.Client
}

// NewPixabay creates a Pixabay provider
func NewPixabay(apiKey string, perPage int) *Pixabay {
	return &Pixabay{
		apiKey:     apiKey,
		baseURL:    "https://pixabay.com/api/videos/",
		perPage:    perPage,
		safeSearch: true,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Pixabay) Name() string { return "pixabay" }

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayHit struct {
	ID       int                         `json:"id"`
	Duration float64                     `json:"duration"`
	Videos   map[string]pixabayRendition `json:"videos"`
}

type pixabaySearchResponse struct {
	Hits []pixabayHit `json:"hits"`
}

func (p *Pixabay) Search(ctx context.Context, term string, minDuration float64) ([]Candidate, error) {
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", term)
	q.Set("video_type", "film")
	q.Set("safesearch", strconv.FormatBool(p.safeSearch))
	q.Set("per_page", strconv.Itoa(p.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay search: status %d", resp.StatusCode)
	}

	var parsed pixabaySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse pixabay response: %w", err)
	}

	var out []Candidate
	for _, h := range parsed.Hits {
		var best pixabayRendition
		for _, r := range h.Videos {
			if r.URL == "" {
				continue
			}
			if r.Width*r.Height > best.Width*best.Height {
				best = r
			}
		}
		if best.URL == "" {
			continue
		}
		out = append(out, Candidate{
			ID:       strconv.Itoa(h.ID),
			Duration: h.Duration,
			URL:      best.URL,
			Width:    best.Width,
			Height:   best.Height,
		})
	}
	return out, nil
}

func (p *Pixabay) Download(ctx context.Context, c Candidate, destPath string) error {
	return download(ctx, p.httpClient, c.URL, destPath, nil)
}
