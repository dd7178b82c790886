package sources

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Storyblocks searches the Storyblocks stock library. Every request is signed
// with an HMAC over the resource path using privateKey+expiry as the key.
type Storyblocks struct {
	publicKey  string
	privateKey string
	baseURL    string
	perPage    int
	httpClient *http.Client
	now        func() time.Time
}

// NewStoryblocks creates a Storyblocks provider
func NewStoryblocks(publicKey, privateKey string, perPage int) *Storyblocks {
	return &Storyblocks{
		publicKey:  publicKey,
		privateKey: privateKey,
		baseURL:    "https://api.storyblocks.com",
		perPage:    perPage,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

func (s *Storyblocks) Name() string { return "storyblocks" }

func signResource(privateKey, resource, expires string) string {
	mac := hmac.New(sha256.New, []byte(privateKey+expires))
	mac.Write([]byte(resource))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Storyblocks) signedQuery(resource string) url.Values {
	expires := strconv.FormatInt(s.now().Unix()+3600, 10)
	sig := signResource(s.privateKey, resource, expires)
	q := url.Values{}
	q.Set("APIKEY", s.publicKey)
	q.Set("EXPIRES", expires)
	q.Set("HMAC", sig)
	q.Set("project_id", sig)
	q.Set("user_id", "pipeline"+sig)
	return q
}

type storyblocksHit struct {
	ID       int     `json:"id"`
	Duration float64 `json:"duration"`
}

type storyblocksSearchResponse struct {
	Results []storyblocksHit `json:"results"`
}

func (s *Storyblocks) Search(ctx context.Context, term string, minDuration float64) ([]Candidate, error) {
	const resource = "/api/v2/videos/search"
	q := s.signedQuery(resource)
	q.Set("keywords", term)
	q.Set("content_type", "all")
	q.Set("sort_by", "most_relevant")
	q.Set("sort_order", "DESC")
	q.Set("results_per_page", strconv.Itoa(s.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+resource+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storyblocks search: status %d", resp.StatusCode)
	}

	var parsed storyblocksSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse storyblocks response: %w", err)
	}

	var out []Candidate
	for _, h := range parsed.Results {
		if minDuration > 0 && h.Duration < minDuration {
			continue
		}
		out = append(out, Candidate{
			ID:       strconv.Itoa(h.ID),
			Duration: h.Duration,
			// the download URL requires a second signed request, resolved
			// at acquire time
		})
	}
	return out, nil
}

type storyblocksDownloadResponse struct {
	MP4 map[string]string `json:"MP4"`
	MOV map[string]string `json:"MOV"`
}

func (s *Storyblocks) Download(ctx context.Context, c Candidate, destPath string) error {
	resource := "/api/v2/videos/stock-item/download/" + c.ID
	q := s.signedQuery(resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+resource+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storyblocks download: status %d", resp.StatusCode)
	}

	var parsed storyblocksDownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("parse storyblocks download response: %w", err)
	}

	videoURL := bestFormatURL(parsed.MP4)
	if videoURL == "" {
		videoURL = bestFormatURL(parsed.MOV)
	}
	if videoURL == "" {
		return fmt.Errorf("no downloadable formats for item %s", c.ID)
	}
	return download(ctx, s.httpClient, videoURL, destPath, nil)
}

// bestFormatURL picks the highest resolution from keys like "_1080p"
func bestFormatURL(formats map[string]string) string {
	bestRes := -1
	bestURL := ""
	for key, u := range formats {
		if u == "" {
			continue
		}
		res, err := strconv.Atoi(strings.Trim(key, "_p"))
		if err != nil {
			res = 0
		}
		if res > bestRes {
			bestRes = res
			bestURL = u
		}
	}
	return bestURL
}
