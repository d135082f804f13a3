package capture

import "sync"

// Microphone is an exclusive physical input. Every controller that records
// from the same device must share one Microphone, so only one of them can
// capture at a time.
type Microphone struct {
	name string

	mu     sync.Mutex
	holder *Controller
}

// NewMicrophone creates the exclusive handle for a device
func NewMicrophone(name string) *Microphone {
	return &Microphone{name: name}
}

// Name returns the device name
func (m *Microphone) Name() string {
	return m.name
}

// InUse reports whether a controller holds the microphone
func (m *Microphone) InUse() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder != nil
}

func (m *Microphone) acquire(c *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holder != nil {
		return ErrDeviceBusy
	}
	m.holder = c
	return nil
}

func (m *Microphone) release(c *Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holder == c {
		m.holder = nil
	}
}
