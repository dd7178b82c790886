package assemble

import (
	"errors"
	"fmt"
)

// ErrNoScenesReady means every scene was skipped: there is nothing to render
// and no output file was produced. This is an explicit empty result, not a
// render failure.
var ErrNoScenesReady = errors.New("no scenes ready to render")

// Scene states, in pipeline order. A skipped scene is recorded with the last
// state it reached before failing.
const (
	StatePending           = "pending"
	StateAudioLoaded       = "audio_loaded"
	StateCandidateAcquired = "candidate_acquired"
	StateReconciled        = "reconciled"
	StateComposited        = "composited"
	StateReady             = "ready"
)

// SceneFailure records where a skipped scene left the pipeline
type SceneFailure struct {
	Index  int    `json:"index"`
	State  string `json:"state"` // last state reached before the skip
	Reason string `json:"reason"`
}

// Report summarizes one assembly run: which scenes made it into the output
// and why the rest were skipped
type Report struct {
	Total   int            `json:"total"`
	Ready   []int          `json:"ready"`
	Skipped []SceneFailure `json:"skipped"`
	Output  string         `json:"output,omitempty"`
}

func (r *Report) skip(index int, state string, err error) {
	r.Skipped = append(r.Skipped, SceneFailure{Index: index, State: state, Reason: err.Error()})
}

// RenderError is a fatal concatenation or encode failure. It carries the
// partial-failure report so the caller can see which scenes had succeeded
// before the fatal point.
type RenderError struct {
	Report *Report
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed with %d/%d scenes ready: %v", len(e.Report.Ready), e.Report.Total, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
