package assemble

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"shorts-pipeline/compose"
	"shorts-pipeline/config"
	"shorts-pipeline/media"
	"shorts-pipeline/reconcile"
	"shorts-pipeline/sources"
)

// Pipeline turns an ordered list of narration scenes into one rendered video.
// Scenes are processed sequentially in index order; a scene that fails to
// produce a clip is skipped and logged, never fatal. Only render-stage and
// whole-input errors reach the caller.
type Pipeline struct {
	tool        media.Toolchain
	adapter     sources.Adapter
	reconciler  *reconcile.Reconciler
	compositor  *compose.Compositor
	scratch     string
	width       int
	height      int
	fps         int
	aspectRatio string
}

// New creates a Pipeline working inside scratchDir, which must be private to
// this run
func New(cfg *config.Config, tool media.Toolchain, adapter sources.Adapter, scratchDir string) *Pipeline {
	return &Pipeline{
		tool:        tool,
		adapter:     adapter,
		reconciler:  reconcile.New(tool, cfg.Video.ToleranceSec),
		compositor:  compose.New(tool, cfg.Video.OutputWidth, cfg.Video.OutputHeight),
		scratch:     scratchDir,
		width:       cfg.Video.OutputWidth,
		height:      cfg.Video.OutputHeight,
		fps:         cfg.Video.FPS,
		aspectRatio: cfg.Sources.LumaAspectRatio,
	}
}

type readyScene struct {
	index int
	clip  *media.Clip
}

// Assemble builds the final video at outputPath. Scene audio is located by
// convention: scene_<1-based-index>.mp3 inside audioDir. searchTerms pairs
// with scenes by position; missing terms fall back to a generic search.
//
// The returned Report always describes the run. The error is nil on success,
// ErrNoScenesReady when every scene was skipped, or a *RenderError when
// concatenation or the final write failed.
func (p *Pipeline) Assemble(ctx context.Context, scenes []string, searchTerms []string, audioDir, outputPath string) (*Report, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes provided")
	}

	videoScratch := filepath.Join(p.scratch, "video")
	if err := os.MkdirAll(videoScratch, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(videoScratch)

	report := &Report{Total: len(scenes)}

	// Everything that survives scene processing is owned by the run and
	// released after render, success or failure.
	runArena := newArena()
	defer runArena.release()

	var ready []readyScene
	for i, text := range scenes {
		idx := i + 1
		term := "generic"
		if i < len(searchTerms) {
			term = searchTerms[i]
		}

		clip, reached, err := p.processScene(ctx, idx, text, term, audioDir, videoScratch, runArena)
		if err != nil {
			log.Printf("[assemble] Scene %d skipped (%s): %v", idx, reached, err)
			report.skip(idx, reached, err)
			continue
		}
		log.Printf("[assemble] Scene %d ready (%.2fs)", idx, clip.Duration)
		report.Ready = append(report.Ready, idx)
		ready = append(ready, readyScene{index: idx, clip: clip})
	}

	if err := p.render(ctx, ready, outputPath, report); err != nil {
		return report, err
	}
	return report, nil
}

// processScene drives one scene through the state machine. On any failure it
// reports the last state reached; every resource acquired for the scene is
// released by the scene arena before returning. The composited clip is handed
// to runArena and survives until after render.
func (p *Pipeline) processScene(ctx context.Context, idx int, text, term, audioDir, videoScratch string, runArena *arena) (clip *media.Clip, reached string, err error) {
	reached = StatePending

	sceneArena := newArena()
	defer sceneArena.release()

	audioPath := filepath.Join(audioDir, fmt.Sprintf("scene_%d.mp3", idx))
	if _, err := os.Stat(audioPath); err != nil {
		return nil, reached, fmt.Errorf("audio not found: %w", err)
	}
	audioProbe, err := p.tool.Probe(ctx, audioPath)
	if err != nil {
		return nil, reached, fmt.Errorf("probe audio: %w", err)
	}
	// The narration file belongs to the audio stage; Keep releases the handle
	// without deleting it.
	narration := media.NewClip(audioPath, audioProbe).Keep()
	sceneArena.track(narration)
	audioSec := narration.Duration
	reached = StateAudioLoaded
	log.Printf("[assemble] Scene %d: audio %.2fs, term %q", idx, audioSec, term)

	rawPath := filepath.Join(videoScratch, fmt.Sprintf("scene_%d_raw.mp4", idx))
	req := sources.Request{
		Term:        term,
		Prompt:      term,
		MinDuration: audioSec,
		AspectRatio: p.aspectRatio,
	}
	if err := p.adapter.Fetch(ctx, req, rawPath); err != nil {
		return nil, reached, fmt.Errorf("acquire from %s: %w", p.adapter.Name(), err)
	}
	rawProbe, err := p.tool.Probe(ctx, rawPath)
	if err != nil {
		os.Remove(rawPath)
		return nil, reached, fmt.Errorf("probe downloaded clip: %w", err)
	}
	raw := media.NewClip(rawPath, rawProbe)
	sceneArena.track(raw)
	reached = StateCandidateAcquired

	recPath := filepath.Join(videoScratch, fmt.Sprintf("scene_%d_rec.mp4", idx))
	rec, err := p.reconciler.Apply(ctx, raw, audioSec, recPath)
	if err != nil {
		return nil, reached, fmt.Errorf("reconcile duration: %w", err)
	}
	sceneArena.track(rec)
	reached = StateReconciled

	framedPath := filepath.Join(videoScratch, fmt.Sprintf("scene_%d_framed.mp4", idx))
	finalPath := filepath.Join(videoScratch, fmt.Sprintf("scene_%d_final.mp4", idx))
	comp, err := p.compositor.Apply(ctx, rec, audioPath, framedPath, finalPath)
	if err != nil {
		return nil, reached, fmt.Errorf("composite: %w", err)
	}
	reached = StateComposited

	runArena.track(comp)
	reached = StateReady
	return comp, reached, nil
}

// render concatenates the ready scenes in index order and writes the output
// atomically: the destination path only ever holds a complete file.
func (p *Pipeline) render(ctx context.Context, ready []readyScene, outputPath string, report *Report) error {
	if len(ready) == 0 {
		log.Printf("[assemble] ⚠️ No scenes ready, skipping render")
		return ErrNoScenesReady
	}

	log.Printf("[assemble] Concatenating %d scene clip(s)...", len(ready))
	inputs := make([]string, len(ready))
	for i, r := range ready {
		inputs[i] = r.clip.Path
	}

	concatPath := filepath.Join(p.scratch, "render_concat.mp4")
	if err := p.tool.Concat(ctx, inputs, concatPath, p.width, p.height, p.fps); err != nil {
		return &RenderError{Report: report, Err: fmt.Errorf("concatenate: %w", err)}
	}
	defer os.Remove(concatPath)

	tmpPath := filepath.Join(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".tmp")
	if err := p.tool.Finalize(ctx, concatPath, tmpPath); err != nil {
		os.Remove(tmpPath)
		return &RenderError{Report: report, Err: fmt.Errorf("finalize: %w", err)}
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return &RenderError{Report: report, Err: fmt.Errorf("move output into place: %w", err)}
	}

	report.Output = outputPath
	log.Printf("[assemble] ✅ Final video ready: %s", outputPath)
	return nil
}
