package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a progress message on the diagnostic writer. It draws
// nothing when the renderer is not attached to a terminal.
type Spinner struct {
	r       *Renderer
	msg     string
	frames  spinner.Spinner
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSpinner creates a spinner showing msg.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{r: r, msg: msg, frames: spinner.Dot}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || !s.r.isTTY {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
}

func (s *Spinner) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := s.frames.Frames[i%len(s.frames.Frames)]
		_, _ = fmt.Fprintf(s.r.errOut, "\r%s %s", s.r.styles.Info.Render(frame), s.msg)
		select {
		case <-s.done:
			_, _ = fmt.Fprint(s.r.errOut, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()
	s.wg.Wait()
}

// Success stops the spinner and prints a success line.
func (s *Spinner) Success(msg string) {
	s.Stop()
	s.r.Success(msg)
}

// Fail stops the spinner and prints an error line.
func (s *Spinner) Fail(msg string) {
	s.Stop()
	s.r.Error(msg)
}
