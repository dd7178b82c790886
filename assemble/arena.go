package assemble

import (
	"io"
	"log"
)

// arena owns every resource acquired while processing one scope (a scene, or
// the whole run). release closes everything exactly once, newest first, on
// every exit path.
type arena struct {
	closers  []io.Closer
	released bool
}

func newArena() *arena {
	return &arena{}
}

func (a *arena) track(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *arena) release() {
	if a.released {
		return
	}
	a.released = true
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Printf("[assemble] release warning: %v", err)
		}
	}
	a.closers = nil
}
