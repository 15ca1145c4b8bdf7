package netlayer

import (
	"sync"

	"github.com/arloliu/go-swp/frame"
)

type capturePhysical struct {
	mu     sync.Mutex
	frames []frame.Frame
}

func (c *capturePhysical) ToPhysicalLayer(f *frame.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, *f)

	return nil
}

func (c *capturePhysical) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.frames)
}
