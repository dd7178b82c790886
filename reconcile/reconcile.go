package reconcile

import (
	"context"
	"fmt"
	"log"

	"shorts-pipeline/media"
)

// DefaultTolerance is the rendering tolerance in seconds: durations closer
// than this are treated as already matching
const DefaultTolerance = 0.1

// Mode says how a clip's duration gets matched to its narration
type Mode int

const (
	// ModePass means the durations already match within tolerance; only a
	// rounding trim is applied
	ModePass Mode = iota
	// ModeTrim cuts a longer clip down to the target
	ModeTrim
	// ModeStretch retimes a shorter clip so it spans the target
	ModeStretch
)

func (m Mode) String() string {
	switch m {
	case ModePass:
		return "pass"
	case ModeTrim:
		return "trim"
	case ModeStretch:
		return "stretch"
	}
	return "unknown"
}

// Plan is the reconciliation decision for one clip
type Plan struct {
	Mode   Mode
	Target float64
	// Factor is the play rate applied in ModeStretch (source/target, < 1
	// slows the clip down); 1.0 otherwise
	Factor float64
}

// PlanFor decides between trim, stretch and pass-through for a source clip of
// duration source against a narration of duration target
func PlanFor(source, target, tolerance float64) (Plan, error) {
	if target <= 0 {
		return Plan{}, fmt.Errorf("target duration must be positive, got %.3f", target)
	}
	if source <= 0 {
		return Plan{}, fmt.Errorf("source duration must be positive, got %.3f", source)
	}
	diff := source - target
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		return Plan{Mode: ModePass, Target: target, Factor: 1.0}, nil
	}
	if source >= target {
		return Plan{Mode: ModeTrim, Target: target, Factor: 1.0}, nil
	}
	return Plan{Mode: ModeStretch, Target: target, Factor: source / target}, nil
}

// Reconciler matches clip durations to narration durations
type Reconciler struct {
	tool      media.Toolchain
	tolerance float64
}

// New creates a Reconciler with the given tolerance (0 means DefaultTolerance)
func New(tool media.Toolchain, tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Reconciler{tool: tool, tolerance: tolerance}
}

// Apply produces a new clip at outPath whose duration equals target within
// tolerance. The input clip stays owned by the caller.
func (r *Reconciler) Apply(ctx context.Context, clip *media.Clip, target float64, outPath string) (*media.Clip, error) {
	plan, err := PlanFor(clip.Duration, target, r.tolerance)
	if err != nil {
		return nil, err
	}

	switch plan.Mode {
	case ModeStretch:
		log.Printf("[reconcile] stretching %.2fs clip to %.2fs (rate %.3f)", clip.Duration, target, plan.Factor)
		if err := r.tool.Stretch(ctx, clip.Path, outPath, plan.Factor, target); err != nil {
			return nil, fmt.Errorf("stretch clip: %w", err)
		}
	default:
		// trim also corrects sub-tolerance rounding in the pass case
		if err := r.tool.Trim(ctx, clip.Path, outPath, target); err != nil {
			return nil, fmt.Errorf("trim clip: %w", err)
		}
	}

	return media.NewClip(outPath, &media.ProbeResult{
		Duration: target,
		Width:    clip.Width,
		Height:   clip.Height,
	}), nil
}
