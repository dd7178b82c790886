package compose

import (
	"context"
	"fmt"
	"math"

	"shorts-pipeline/media"
)

// TargetRatio is the canonical portrait aspect ratio (9:16)
const TargetRatio = 9.0 / 16.0

// CropSize computes the centered crop that brings a w x h frame to the target
// aspect ratio without distortion. A source narrower than the target keeps its
// width and loses height; a wider source keeps its height and loses width.
func CropSize(w, h int, ratio float64) (cropW, cropH int) {
	src := float64(w) / float64(h)
	if src < ratio {
		return w, int(math.Round(float64(w) / ratio))
	}
	return int(math.Round(ratio * float64(h))), h
}

// Compositor normalizes clip geometry to the canonical output resolution and
// attaches the scene's narration as the clip's only audio track
type Compositor struct {
	tool   media.Toolchain
	ratio  float64
	width  int
	height int
}

// New creates a Compositor for the given output geometry
func New(tool media.Toolchain, outW, outH int) *Compositor {
	return &Compositor{
		tool:   tool,
		ratio:  float64(outW) / float64(outH),
		width:  outW,
		height: outH,
	}
}

// Apply crops clip to the target ratio, resizes it to the canonical output
// resolution and muxes audioPath as its sole audio stream. The input clip
// stays owned by the caller; the returned clip owns outPath.
func (c *Compositor) Apply(ctx context.Context, clip *media.Clip, audioPath, scratchPath, outPath string) (*media.Clip, error) {
	if clip.Width <= 0 || clip.Height <= 0 {
		return nil, fmt.Errorf("clip %s has no frame dimensions", clip.Path)
	}

	cropW, cropH := CropSize(clip.Width, clip.Height, c.ratio)
	if err := c.tool.CropScale(ctx, clip.Path, scratchPath, cropW, cropH, c.width, c.height); err != nil {
		return nil, fmt.Errorf("crop/resize: %w", err)
	}

	framed := media.NewClip(scratchPath, &media.ProbeResult{
		Duration: clip.Duration,
		Width:    c.width,
		Height:   c.height,
	})
	defer framed.Close()

	if err := c.tool.AttachAudio(ctx, framed.Path, audioPath, outPath); err != nil {
		return nil, fmt.Errorf("attach audio: %w", err)
	}

	return media.NewClip(outPath, &media.ProbeResult{
		Duration: clip.Duration,
		Width:    c.width,
		Height:   c.height,
	}), nil
}
