package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Stub is a Toolchain that performs no real media work. It records every
// invocation, fabricates probe results from configured tables, and writes
// placeholder output files so resource lifecycles behave as they would with
// the real ffmpeg.
type Stub struct {
	// Durations and Dims are keyed by file base name
	Durations map[string]float64
	Dims      map[string][2]int
	// FailOn makes the named operation (trim, stretch, cropscale,
	// attachaudio, concat, finalize, probe) return an error
	FailOn string
	Calls  []string
}

// NewStub creates an empty Stub
func NewStub() *Stub {
	return &Stub{
		Durations: make(map[string]float64),
		Dims:      make(map[string][2]int),
	}
}

func (s *Stub) record(op string, out string) error {
	s.Calls = append(s.Calls, op)
	if s.FailOn == op {
		return fmt.Errorf("stub: %s failed", op)
	}
	if out != "" {
		if err := os.WriteFile(out, []byte("stub"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stub) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	s.Calls = append(s.Calls, "probe")
	if s.FailOn == "probe" {
		return nil, fmt.Errorf("stub: probe failed")
	}
	base := filepath.Base(path)
	dur, ok := s.Durations[base]
	if !ok {
		return nil, fmt.Errorf("stub: no duration for %s", base)
	}
	pr := &ProbeResult{Duration: dur}
	if d, ok := s.Dims[base]; ok {
		pr.Width, pr.Height = d[0], d[1]
	}
	return pr, nil
}

func (s *Stub) Trim(ctx context.Context, in, out string, seconds float64) error {
	return s.record("trim", out)
}

func (s *Stub) Stretch(ctx context.Context, in, out string, rate, seconds float64) error {
	return s.record("stretch", out)
}

func (s *Stub) CropScale(ctx context.Context, in, out string, cropW, cropH, outW, outH int) error {
	s.Calls = append(s.Calls, fmt.Sprintf("cropscale %dx%d->%dx%d", cropW, cropH, outW, outH))
	if s.FailOn == "cropscale" {
		return fmt.Errorf("stub: cropscale failed")
	}
	return os.WriteFile(out, []byte("stub"), 0644)
}

func (s *Stub) AttachAudio(ctx context.Context, videoIn, audioIn, out string) error {
	return s.record("attachaudio", out)
}

func (s *Stub) Concat(ctx context.Context, inputs []string, out string, w, h, fps int) error {
	s.Calls = append(s.Calls, fmt.Sprintf("concat n=%d", len(inputs)))
	if s.FailOn == "concat" {
		return fmt.Errorf("stub: concat failed")
	}
	return os.WriteFile(out, []byte("stub"), 0644)
}

func (s *Stub) Finalize(ctx context.Context, in, out string) error {
	return s.record("finalize", out)
}
