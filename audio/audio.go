package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"shorts-pipeline/config"
)

// Generator synthesizes one narration audio file per scene, named
// scene_<1-based-index>.mp3 so the assembly pipeline can locate them by
// convention
type Generator struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
}

// New creates an audio Generator
func New(cfg *config.Config) *Generator {
	return &Generator{
		cfg:        cfg,
		baseURL:    "https://api.elevenlabs.io",
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Run synthesizes audio for every scene into outputDir
func (g *Generator) Run(ctx context.Context, scenes []string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	for i, text := range scenes {
		outFile := filepath.Join(outputDir, fmt.Sprintf("scene_%d.mp3", i+1))
		log.Printf("[audio] Scene %d/%d: synthesizing...", i+1, len(scenes))

		var err error
		switch g.cfg.Audio.Engine {
		case "elevenlabs":
			err = g.elevenLabs(ctx, scenes, i, outFile)
		default:
			err = g.command(ctx, text, outFile)
		}
		if err != nil {
			return fmt.Errorf("scene %d synthesis: %w", i+1, err)
		}
		log.Printf("[audio] ✅ Scene %d audio saved: %s", i+1, outFile)
	}
	return nil
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings map[string]float64 `json:"voice_settings"`
	PreviousText  string             `json:"previous_text,omitempty"`
	NextText      string             `json:"next_text,omitempty"`
}

// elevenLabs calls the ElevenLabs TTS API, passing the neighboring scene
// narrations so prosody flows across scene boundaries
func (g *Generator) elevenLabs(ctx context.Context, scenes []string, idx int, outFile string) error {
	if g.cfg.Keys.ElevenLabs == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY not set")
	}

	body := elevenLabsRequest{
		Text:    scenes[idx],
		ModelID: g.cfg.Audio.ModelID,
		VoiceSettings: map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.5,
		},
	}
	if idx > 0 {
		body.PreviousText = scenes[idx-1]
	}
	if idx < len(scenes)-1 {
		body.NextText = scenes[idx+1]
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", g.baseURL, g.cfg.Audio.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", g.cfg.Keys.ElevenLabs)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, msg)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outFile)
		return fmt.Errorf("write audio: %w", err)
	}
	return f.Close()
}

// command shells out to the configured TTS binary, which must accept
// --text "..." --output path/to/file.mp3
func (g *Generator) command(ctx context.Context, text, outFile string) error {
	ttsCmd := g.cfg.Audio.TTSCommand
	if ttsCmd == "" {
		if _, err := exec.LookPath("edge-tts"); err == nil {
			return runWithRetries(ctx, []string{
				"edge-tts",
				"--voice", "en-US-GuyNeural",
				"--text", text,
				"--write-media", outFile,
			})
		}
		return fmt.Errorf("no TTS engine configured: set audio.tts_command or install edge-tts")
	}
	return runWithRetries(ctx, []string{ttsCmd, "--text", text, "--output", outFile})
}

// runWithRetries runs the command up to 3 times with growing backoff
func runWithRetries(ctx context.Context, args []string) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err = cmd.Run()
		if err == nil {
			return nil
		}
		log.Printf("[audio] TTS attempt %d failed: %v, retrying...", attempt, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return err
}
