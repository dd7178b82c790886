package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"shorts-pipeline/assemble"
	"shorts-pipeline/audio"
	"shorts-pipeline/config"
	"shorts-pipeline/media"
	"shorts-pipeline/script"
	"shorts-pipeline/sources"
	"shorts-pipeline/types"
	"shorts-pipeline/upload"

	"github.com/google/uuid"
)

// Request describes one video-generation run
type Request struct {
	Topic       string
	Script      string // user-supplied topic text used verbatim, skipping topic generation
	VideoSource string // pixabay | pexels | storyblocks | luma; empty uses config default
	Upload      bool
}

// Result is the outcome of one run
type Result struct {
	RunID      string           `json:"run_id"`
	Filename   string           `json:"filename"`
	OutputPath string           `json:"output_path"`
	Title      *types.TitleInfo `json:"title"`
	Report     *assemble.Report `json:"report"`
	YouTubeID  string           `json:"youtube_id,omitempty"`
	YouTubeURL string           `json:"youtube_url,omitempty"`
}

// Runner executes the full generation pipeline: topic, script, audio,
// assembly, and optional upload. Each run works in a private scratch
// subdirectory so overlapping runs never collide.
type Runner struct {
	cfg    *config.Config
	tool   media.Toolchain
	writer *script.Client
	voices *audio.Generator
}

// New creates a Runner
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg:    cfg,
		tool:   media.NewExec(cfg.Video.VideoCodec, cfg.Video.AudioCodec),
		writer: script.New(cfg),
		voices: audio.New(cfg),
	}
}

// Run executes the pipeline for one request. An ErrNoScenesReady result is
// returned alongside the partial Result so callers can distinguish the
// explicit empty outcome from a crash.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()[:8]
	log.Printf("🎬 Pipeline starting, run ID: %s", runID)

	scratch := filepath.Join(r.cfg.Paths.Scratch, runID)
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	// Only this run's private subdirectory is ever cleared
	defer os.RemoveAll(scratch)

	result := &Result{RunID: runID}
	state := &types.RunState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		r.saveState(state)
	}()

	log.Println("\n━━━ STAGE 1: Topic ━━━")
	topic, err := r.resolveTopic(ctx, req)
	if err != nil {
		state.Error = err.Error()
		return nil, err
	}
	state.Topic = topic

	log.Println("\n━━━ STAGE 2: Script Writing ━━━")
	scenes, err := r.writer.Scenes(ctx, topic, r.cfg.Script.TargetDurationSec)
	if err != nil {
		log.Printf("⚠️  Script generation failed: %v, using topic as single scene", err)
		scenes = []string{topic}
	}
	state.Scenes = scenes

	info, err := r.writer.TitleAndHashtags(ctx, topic)
	if err != nil {
		log.Printf("⚠️  Title generation failed: %v, using fallback title", err)
		info = &types.TitleInfo{Title: "NoTitle"}
	}
	state.TitleInfo = info
	result.Title = info

	log.Println("\n━━━ STAGE 3: Audio Generation ━━━")
	audioDir := filepath.Join(scratch, "audio")
	if err := r.voices.Run(ctx, scenes, audioDir); err != nil {
		state.Error = err.Error()
		return nil, fmt.Errorf("audio stage: %w", err)
	}
	state.AudioDir = audioDir

	log.Println("\n━━━ STAGE 4: Visuals ━━━")
	source := req.VideoSource
	if source == "" {
		source = r.cfg.Video.Source
	}
	adapter, err := r.adapterFor(source)
	if err != nil {
		state.Error = err.Error()
		return nil, err
	}

	var terms []string
	if source == "luma" {
		terms, err = r.writer.DetailedPrompts(ctx, scenes)
	} else {
		terms, err = r.writer.SearchTerms(ctx, topic, scenes)
	}
	if err != nil {
		log.Printf("⚠️  Term generation failed: %v, using scene text directly", err)
		terms = scenes
	}
	state.SearchTerms = terms

	log.Println("\n━━━ STAGE 5: Assembly ━━━")
	if err := os.MkdirAll(r.cfg.Paths.Output, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	result.Filename = FinalFilename(r.cfg.Audio.Engine, source, info.Title)
	result.OutputPath = filepath.Join(r.cfg.Paths.Output, result.Filename)

	line := assemble.New(r.cfg, r.tool, adapter, scratch)
	report, err := line.Assemble(ctx, scenes, terms, audioDir, result.OutputPath)
	result.Report = report
	if err != nil {
		state.Error = err.Error()
		if errors.Is(err, assemble.ErrNoScenesReady) {
			return result, err
		}
		return result, fmt.Errorf("assembly stage: %w", err)
	}
	state.VideoFile = result.OutputPath

	if req.Upload && r.cfg.Upload.Enabled {
		log.Println("\n━━━ STAGE 6: Upload ━━━")
		id, url, err := upload.New(r.cfg).Run(ctx, result.OutputPath, info)
		if err != nil {
			log.Printf("⚠️  Upload failed: %v, video kept locally", err)
		} else {
			result.YouTubeID, result.YouTubeURL = id, url
			state.YouTubeID, state.YouTubeURL = id, url
			_ = upload.LogUpload(id, url, result.OutputPath, r.cfg.Paths.Logs, info)
		}
	}

	log.Printf("✅ Pipeline complete: %s", result.OutputPath)
	return result, nil
}

func (r *Runner) resolveTopic(ctx context.Context, req Request) (string, error) {
	switch {
	case req.Script != "":
		return req.Script, nil
	case req.Topic != "":
		return r.writer.Topic(ctx, req.Topic, nil)
	default:
		return r.writer.Topic(ctx, "Fun and lesser known facts", nil)
	}
}

func (r *Runner) adapterFor(name string) (sources.Adapter, error) {
	keys := r.cfg.Keys
	switch name {
	case "pexels":
		return sources.NewStockAdapter(sources.NewPexels(keys.Pexels, r.cfg.Sources.PerPage)), nil
	case "pixabay":
		return sources.NewStockAdapter(sources.NewPixabay(keys.Pixabay, r.cfg.Sources.PerPage)), nil
	case "storyblocks":
		return sources.NewStockAdapter(sources.NewStoryblocks(keys.StoryblocksPublic, keys.StoryblocksPrivate, r.cfg.Sources.PerPage)), nil
	case "luma":
		poll := time.Duration(r.cfg.Sources.LumaPollIntervalSec * float64(time.Second))
		return sources.NewLuma(keys.Luma, poll, r.cfg.Sources.LumaMaxRetries, r.cfg.Sources.LumaExtend), nil
	}
	return nil, fmt.Errorf("unknown video source %q", name)
}

func (r *Runner) saveState(state *types.RunState) {
	if err := os.MkdirAll(r.cfg.Paths.Logs, 0755); err != nil {
		log.Printf("Warning: could not create logs dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal run state: %v", err)
		return
	}
	path := filepath.Join(r.cfg.Paths.Logs, fmt.Sprintf("run_%s.json", state.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
