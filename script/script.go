package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"shorts-pipeline/config"
	"shorts-pipeline/types"
)

// Client generates narration scripts, search terms and metadata through an
// OpenAI-compatible chat completions endpoint
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// New creates a script Client from config
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:     cfg.Script.BaseURL,
		apiKey:      cfg.Keys.OpenAI,
		model:       cfg.Script.Model,
		temperature: cfg.Script.Temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) chat(ctx context.Context, prompt string, temperature float64, jsonMode bool) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   1600,
	}
	if jsonMode {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Topic generates a specific lesser-known fact for the given subject,
// avoiding any previously used facts
func (c *Client) Topic(ctx context.Context, subject string, previousFacts []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate a very specific, interesting, and lesser-known fact related to the following subject: %q.\n", subject))
	sb.WriteString("The fact should be engaging, surprising, and not commonly known. Provide the fact as a single, concise sentence.\n")
	sb.WriteString("Do not include any markdown formatting. Only return the fact as plain text.\n")
	if len(previousFacts) > 0 {
		sb.WriteString("Do not repeat any of the following facts:\n")
		for _, f := range previousFacts {
			sb.WriteString("- " + f + "\n")
		}
	}

	topic, err := c.chat(ctx, sb.String(), 0.9, false)
	if err != nil {
		return "", err
	}
	log.Printf("[script] Topic: %s", topic)
	return topic, nil
}

type scenesJSON struct {
	Scenes []string `json:"scenes"`
}

// Scenes generates the ordered scene narrations for a video about topic,
// sized to roughly targetSeconds of narration
func (c *Client) Scenes(ctx context.Context, topic string, targetSeconds int) ([]string, error) {
	prompt := fmt.Sprintf(`You create structured scripts for %d second YouTube videos.
The video is divided into 3-4 scenes, each lasting about 5 seconds.
Each scene is 1-2 sentences, gets straight to the point, and must relate to the subject.
Never include markdown, titles, or narrator indicators.
Respond with JSON: {"scenes": ["...", "..."]}

Fact: %q`, targetSeconds, topic)

	content, err := c.chat(ctx, prompt, c.temperature, true)
	if err != nil {
		return nil, err
	}

	var parsed scenesJSON
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse scenes JSON: %w", err)
	}
	if len(parsed.Scenes) == 0 {
		return nil, fmt.Errorf("no scenes generated")
	}
	log.Printf("[script] ✅ Script ready: %d scenes", len(parsed.Scenes))
	return parsed.Scenes, nil
}

type termsJSON struct {
	SearchTerms []string `json:"search_terms"`
}

// SearchTerms generates one stock-footage search term per scene, same order
// and length as scenes
func (c *Client) SearchTerms(ctx context.Context, topic string, scenes []string) ([]string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The video topic is: %q.\n", topic))
	sb.WriteString("For each scene below, produce one short stock-video search term (1-3 words) capturing its visual.\n")
	sb.WriteString(`Respond with JSON: {"search_terms": ["...", "..."]} with exactly one term per scene, in order.` + "\n\nScenes:\n")
	for i, s := range scenes {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}

	content, err := c.chat(ctx, sb.String(), c.temperature, true)
	if err != nil {
		return nil, err
	}

	var parsed termsJSON
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse search terms JSON: %w", err)
	}
	if len(parsed.SearchTerms) != len(scenes) {
		return nil, fmt.Errorf("got %d search terms for %d scenes", len(parsed.SearchTerms), len(scenes))
	}
	return parsed.SearchTerms, nil
}

type promptsJSON struct {
	Prompts []string `json:"prompts"`
}

// DetailedPrompts turns each scene narration into a cinematic generation
// prompt for a generative video provider
func (c *Client) DetailedPrompts(ctx context.Context, scenes []string) ([]string, error) {
	var sb strings.Builder
	sb.WriteString("For each scene below, write a detailed cinematic video generation prompt (one sentence, vivid, concrete visuals, no text overlays).\n")
	sb.WriteString(`Respond with JSON: {"prompts": ["...", "..."]} with exactly one prompt per scene, in order.` + "\n\nScenes:\n")
	for i, s := range scenes {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}

	content, err := c.chat(ctx, sb.String(), c.temperature, true)
	if err != nil {
		return nil, err
	}

	var parsed promptsJSON
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse prompts JSON: %w", err)
	}
	if len(parsed.Prompts) != len(scenes) {
		return nil, fmt.Errorf("got %d prompts for %d scenes", len(parsed.Prompts), len(scenes))
	}
	return parsed.Prompts, nil
}

// TitleAndHashtags generates a catchy title and five hashtags for the topic
func (c *Client) TitleAndHashtags(ctx context.Context, topic string) (*types.TitleInfo, error) {
	prompt := fmt.Sprintf(`Based on the following fact, generate a catchy video title and 5 relevant hashtags for YouTube.
Respond with JSON: {"title": "...", "hashtags": ["...", "..."]}

Fact: %q`, topic)

	content, err := c.chat(ctx, prompt, c.temperature, true)
	if err != nil {
		return nil, err
	}

	var info types.TitleInfo
	if err := json.Unmarshal([]byte(cleanJSON(content)), &info); err != nil {
		return nil, fmt.Errorf("parse title JSON: %w", err)
	}
	if info.Title == "" {
		return nil, fmt.Errorf("no title generated")
	}
	log.Printf("[script] Title: %q", info.Title)
	return &info, nil
}

// cleanJSON strips markdown fences when the model wraps JSON in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
