package livesync

import "sync"

// VisibilityMonitor is a foreground/background signal that only notifies on
// transitions. Sources: the local API, the websocket hub and process signals.
type VisibilityMonitor struct {
	mu          sync.Mutex
	visible     bool
	renderers   int
	subscribers []func(visible bool)
}

// -----------------------------------------------------------------------------

func NewVisibilityMonitor(visible bool) *VisibilityMonitor {
	return &VisibilityMonitor{visible: visible}
}

// -----------------------------------------------------------------------------

// Subscribe registers fn for future transitions.
func (v *VisibilityMonitor) Subscribe(fn func(visible bool)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.subscribers = append(v.subscribers, fn)
}

// -----------------------------------------------------------------------------

func (v *VisibilityMonitor) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// -----------------------------------------------------------------------------

// Set changes the state and reports whether it was a transition.
// Subscribers run synchronously, outside the monitor's lock.
func (v *VisibilityMonitor) Set(visible bool) bool {
	v.mu.Lock()
	if v.visible == visible {
		v.mu.Unlock()
		return false
	}
	v.visible = visible
	subs := append([]func(bool){}, v.subscribers...)
	v.mu.Unlock()

	for _, fn := range subs {
		fn(visible)
	}
	return true
}

// -----------------------------------------------------------------------------

// RendererAttached counts an attached renderer; the first one makes the client visible.
func (v *VisibilityMonitor) RendererAttached() {
	v.mu.Lock()
	v.renderers++
	first := v.renderers == 1
	v.mu.Unlock()

	if first {
		v.Set(true)
	}
}

// RendererDetached is the inverse of RendererAttached; the last one leaving hides the client.
func (v *VisibilityMonitor) RendererDetached() {
	v.mu.Lock()
	if v.renderers > 0 {
		v.renderers--
	}
	last := v.renderers == 0
	v.mu.Unlock()

	if last {
		v.Set(false)
	}
}
