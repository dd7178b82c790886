package media

import (
	"fmt"
	"os"
)

// Clip is a local video or audio artifact owned by exactly one pipeline stage
// at a time. Release removes the backing file; releasing twice is a defect and
// returns an error so leaks and double-frees both surface in tests.
type Clip struct {
	Path     string
	Duration float64
	Width    int
	Height   int

	released bool
	keep     bool
}

// NewClip wraps a probed file in an owned Clip
func NewClip(path string, pr *ProbeResult) *Clip {
	return &Clip{
		Path:     path,
		Duration: pr.Duration,
		Width:    pr.Width,
		Height:   pr.Height,
	}
}

// Keep marks the clip so Close releases ownership without deleting the file.
// Used for caller-owned inputs such as scene audio.
func (c *Clip) Keep() *Clip {
	c.keep = true
	return c
}

// Close releases the clip exactly once
func (c *Clip) Close() error {
	if c.released {
		return fmt.Errorf("clip %s released twice", c.Path)
	}
	c.released = true
	if c.keep {
		return nil
	}
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", c.Path, err)
	}
	return nil
}

// Released reports whether the clip has been closed
func (c *Clip) Released() bool {
	return c.released
}
