package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeResult holds the stream facts the pipeline needs
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
}

// Toolchain is the set of media transforms the pipeline performs.
// The real implementation shells out to ffmpeg/ffprobe; tests swap in a fake.
type Toolchain interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
	// Trim copies the leading seconds of in to out
	Trim(ctx context.Context, in, out string, seconds float64) error
	// Stretch retimes in by the given play rate (rate < 1 slows the clip
	// down) and trims the result to exactly seconds
	Stretch(ctx context.Context, in, out string, rate, seconds float64) error
	// CropScale center-crops in to cropW x cropH then resizes to outW x outH,
	// dropping any embedded audio
	CropScale(ctx context.Context, in, out string, cropW, cropH, outW, outH int) error
	// AttachAudio muxes audioIn as the sole audio track of videoIn
	AttachAudio(ctx context.Context, videoIn, audioIn, out string) error
	// Concat joins the inputs in order onto a common w x h canvas,
	// re-encoding video and audio
	Concat(ctx context.Context, inputs []string, out string, w, h, fps int) error
	// Finalize remuxes in to out with streaming-friendly layout
	Finalize(ctx context.Context, in, out string) error
}

// Exec runs ffmpeg and ffprobe from PATH
type Exec struct {
	FFmpegBin  string
	FFprobeBin string
	VideoCodec string
	AudioCodec string
}

// NewExec builds the default toolchain
func NewExec(videoCodec, audioCodec string) *Exec {
	return &Exec{
		FFmpegBin:  "ffmpeg",
		FFprobeBin: "ffprobe",
		VideoCodec: videoCodec,
		AudioCodec: audioCodec,
	}
}

func (e *Exec) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := exec.CommandContext(ctx, e.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe duration %s: %w", path, err)
	}
	var pr ProbeResult
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &pr.Duration); err != nil {
		return nil, fmt.Errorf("parse duration for %s: %w", path, err)
	}

	// Dimensions are best-effort: audio-only files have no video stream
	dims, err := exec.CommandContext(ctx, e.FFprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	).Output()
	if err == nil {
		parts := strings.Split(strings.TrimSpace(string(dims)), "x")
		if len(parts) == 2 {
			pr.Width, _ = strconv.Atoi(parts[0])
			pr.Height, _ = strconv.Atoi(parts[1])
		}
	}
	return &pr, nil
}

func (e *Exec) Trim(ctx context.Context, in, out string, seconds float64) error {
	return e.run(ctx,
		"-i", in,
		"-t", formatSeconds(seconds),
		"-c:v", e.VideoCodec,
		"-preset", "fast",
		"-crf", "23",
		"-an",
		out,
	)
}

func (e *Exec) Stretch(ctx context.Context, in, out string, rate, seconds float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid play rate %f", rate)
	}
	return e.run(ctx,
		"-i", in,
		"-vf", stretchFilter(rate),
		"-t", formatSeconds(seconds),
		"-c:v", e.VideoCodec,
		"-preset", "fast",
		"-crf", "23",
		"-an",
		out,
	)
}

func (e *Exec) CropScale(ctx context.Context, in, out string, cropW, cropH, outW, outH int) error {
	return e.run(ctx,
		"-i", in,
		"-vf", cropScaleFilter(cropW, cropH, outW, outH),
		"-c:v", e.VideoCodec,
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
}

func (e *Exec) AttachAudio(ctx context.Context, videoIn, audioIn, out string) error {
	return e.run(ctx,
		"-i", videoIn,
		"-i", audioIn,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", e.AudioCodec,
		"-b:a", "192k",
		"-shortest",
		out,
	)
}

func (e *Exec) Concat(ctx context.Context, inputs []string, out string, w, h, fps int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs to concatenate")
	}
	args := []string{}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", concatFilter(len(inputs), w, h),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", e.VideoCodec,
		"-preset", "fast",
		"-crf", "22",
		"-r", strconv.Itoa(fps),
		"-pix_fmt", "yuv420p",
		"-c:a", e.AudioCodec,
		"-b:a", "192k",
		out,
	)
	return e.run(ctx, args...)
}

func (e *Exec) Finalize(ctx context.Context, in, out string) error {
	return e.run(ctx,
		"-i", in,
		"-c", "copy",
		"-movflags", "+faststart",
		out,
	)
}

func (e *Exec) run(ctx context.Context, args ...string) error {
	full := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, e.FFmpegBin, full...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w", args[len(args)-1], err)
	}
	return nil
}

// stretchFilter retimes presentation timestamps so the clip plays at the given
// rate: rate 0.6 makes a 3s clip span 5s
func stretchFilter(rate float64) string {
	return fmt.Sprintf("setpts=PTS/%.6f", rate)
}

// cropScaleFilter center-crops then resizes; the crop must come first so the
// resize never distorts
func cropScaleFilter(cropW, cropH, outW, outH int) string {
	return fmt.Sprintf(
		"crop=%d:%d:(iw-%d)/2:(ih-%d)/2,scale=%d:%d,setsar=1",
		cropW, cropH, cropW, cropH, outW, outH,
	)
}

// concatFilter composes every input onto a common w x h canvas before joining,
// so differing per-clip geometry never breaks the join
func concatFilter(n, w, h int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d];",
			i, w, h, w, h, i,
		)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "[v%d][%d:a]", i, i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=1[v][a]", n)
	return sb.String()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
