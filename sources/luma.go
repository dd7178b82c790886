package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// lumaChunkSec is the nominal length of one Dream Machine generation
const lumaChunkSec = 5.0

// Luma generates clips with the Luma Dream Machine API instead of searching a
// stock library. When Extend is enabled a scene longer than one generation is
// built by chaining keyframe extensions until the clip covers the narration;
// otherwise a single generation is produced and the reconciler stretches it.
type Luma struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxRetries   int
	extend       bool
	httpClient   *http.Client
}

// NewLuma creates a Luma adapter
func NewLuma(apiKey string, pollInterval time.Duration, maxRetries int, extend bool) *Luma {
	return &Luma{
		apiKey:       apiKey,
		baseURL:      "https://api.lumalabs.ai/dream-machine/v1",
		pollInterval: pollInterval,
		maxRetries:   maxRetries,
		extend:       extend,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (l *Luma) Name() string { return "luma" }

type lumaGeneration struct {
	ID            string `json:"id"`
	State         string `json:"state"` // queued | dreaming | completed | failed
	FailureReason string `json:"failure_reason"`
	Assets        struct {
		Video string `json:"video"`
	} `json:"assets"`
}

type lumaKeyframe struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type lumaCreateRequest struct {
	Prompt      string                  `json:"prompt"`
	AspectRatio string                  `json:"aspect_ratio"`
	Keyframes   map[string]lumaKeyframe `json:"keyframes,omitempty"`
}

func (l *Luma) Fetch(ctx context.Context, req Request, destPath string) error {
	gen, err := l.generateWithRetries(ctx, req.Prompt, req.AspectRatio, "")
	if err != nil {
		return err
	}

	if l.extend && req.MinDuration > lumaChunkSec {
		chunks := int(req.MinDuration/lumaChunkSec) + 1
		for i := 1; i < chunks; i++ {
			log.Printf("[luma] extending generation %s (%d/%d)", gen.ID, i+1, chunks)
			next, err := l.generateWithRetries(ctx, req.Prompt, req.AspectRatio, gen.ID)
			if err != nil {
				return fmt.Errorf("extend generation %s: %w", gen.ID, err)
			}
			gen = next
		}
	}

	if gen.Assets.Video == "" {
		return fmt.Errorf("generation %s completed without a video asset", gen.ID)
	}
	return download(ctx, l.httpClient, gen.Assets.Video, destPath, nil)
}

// generateWithRetries creates one generation (optionally extending baseID)
// and polls it to completion. Generation failures count against the retry
// budget; pending states poll indefinitely.
func (l *Luma) generateWithRetries(ctx context.Context, prompt, aspectRatio, baseID string) (*lumaGeneration, error) {
	var lastErr error
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		gen, err := l.create(ctx, prompt, aspectRatio, baseID)
		if err == nil {
			gen, err = l.poll(ctx, gen.ID)
			if err == nil {
				return gen, nil
			}
		}
		lastErr = err
		log.Printf("[luma] generation attempt %d/%d failed: %v", attempt, l.maxRetries, err)
		if attempt < l.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-after(l.pollInterval):
			}
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", l.maxRetries, lastErr)
}

func (l *Luma) create(ctx context.Context, prompt, aspectRatio, baseID string) (*lumaGeneration, error) {
	body := lumaCreateRequest{Prompt: prompt, AspectRatio: aspectRatio}
	if baseID != "" {
		body.Keyframes = map[string]lumaKeyframe{
			"frame0": {Type: "generation", ID: baseID},
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create generation: status %d", resp.StatusCode)
	}

	var gen lumaGeneration
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("parse generation: %w", err)
	}
	return &gen, nil
}

// poll blocks until the generation completes or fails
func (l *Luma) poll(ctx context.Context, id string) (*lumaGeneration, error) {
	for {
		gen, err := l.get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch gen.State {
		case "completed":
			return gen, nil
		case "failed":
			return nil, fmt.Errorf("generation %s failed: %s", id, gen.FailureReason)
		}
		log.Printf("[luma] generation %s: %s", id, gen.State)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-after(l.pollInterval):
		}
	}
}

func (l *Luma) get(ctx context.Context, id string) (*lumaGeneration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/generations/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get generation: status %d", resp.StatusCode)
	}

	var gen lumaGeneration
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("parse generation: %w", err)
	}
	return &gen, nil
}

func after(d time.Duration) <-chan time.Time {
	return time.After(d)
}
