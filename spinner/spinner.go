// Package spinner animates a small activity indicator on a terminal
// while the program waits on something slow, like the first token of a
// completion.
package spinner

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Animation []rune

var (
	Breathe = Animation("▉▊▋▌▍▎▏▎▍▌▋▊▉")
	Dots    = Animation("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")
)

// New returns a stopped spinner. Frames are drawn on w with carriage
// returns and erase-line escapes, so w should be a terminal.
func (a Animation) New(w io.Writer) *Spinner {
	return &Spinner{
		w:      w,
		frames: a,
		done:   make(chan struct{}),
	}
}

type Spinner struct {
	w       io.Writer
	frames  []rune
	current int
	label   string
	done    chan struct{}
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// SetLabel sets a label to show after the spinner. Set to an empty
// string to hide the label again.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// Start starts animating the spinner until Stop is called.
func (s *Spinner) Start() {
	fmt.Fprintf(s.w, "\r\033[K%s", string(s.frames[s.current]))
	ticker := time.NewTicker(100 * time.Millisecond)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				ticker.Stop()
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Lock()
				label := s.label
				s.mu.Unlock()
				if label != "" {
					fmt.Fprintf(s.w, "\r\033[K%s %s", string(s.frames[s.current]), label)
				} else {
					fmt.Fprintf(s.w, "\r\033[K%s", string(s.frames[s.current]))
				}
			}
		}
	}()
}

// Stop erases the spinner and waits for the animation to wind down. A
// spinner is single-use; make a new one for the next wait.
func (s *Spinner) Stop() {
	close(s.done)
	s.wg.Wait()
}
