package focus

import (
	"bytes"
	"sync"

	"github.com/actionsum/focuslog/pkg/window"
)

// State is the last resolved window and its title. Title is empty only when
// no window is focused.
type State struct {
	Window window.Ref
	Title  string
}

// Resolver tracks the focused window of a window source and the title last
// resolved for it. Only the window listener mutates it; State may be read
// from any goroutine.
type Resolver struct {
	source window.Source

	mu    sync.RWMutex
	state State
}

// NewResolver creates a resolver over source
func NewResolver(source window.Source) *Resolver {
	return &Resolver{source: source}
}

// State returns the last resolved window and title
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// ResolveActiveWindow reads the active window property and moves the change
// subscription when focus moved. It returns the active window and whether it
// differs from the previously seen one.
func (r *Resolver) ResolveActiveWindow() (window.Ref, bool) {
	w, ok, err := r.source.ActiveWindow()
	if err != nil || !ok {
		return window.None, false
	}

	r.mu.RLock()
	prev := r.state.Window
	r.mu.RUnlock()

	if w == prev {
		return w, false
	}

	if prev != window.None {
		// The old window may already be gone; nothing to undo then
		_ = r.source.Unwatch(prev)
	}

	if w != window.None {
		if err := r.source.Watch(w); err != nil {
			// Usually ErrBadWindow: it vanished between query and registration
			w = window.None
		}
	}

	r.mu.Lock()
	r.state.Window = w
	r.mu.Unlock()

	return w, prev != w
}

// ResolveTitle looks up the title of w and records it. A None window clears
// the title and always reports a change.
func (r *Resolver) ResolveTitle(w window.Ref) (string, bool) {
	if w == window.None {
		r.mu.Lock()
		r.state.Title = ""
		r.mu.Unlock()
		return "", true
	}

	title, err := r.readTitle(w)
	if err != nil {
		return r.State().Title, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	changed := title != r.state.Title
	r.state.Title = title
	return title, changed
}

// readTitle tries the UTF-8 property first and the legacy one second
func (r *Resolver) readTitle(w window.Ref) (string, error) {
	label := UnnamedTitle
	for _, enc := range []window.Encoding{window.EncodingUTF8, window.EncodingLegacy} {
		prop, err := r.source.Title(w, enc)
		if err != nil {
			return "", err
		}
		if len(bytes.TrimRight(prop.Value, "\x00")) == 0 {
			label = UnnamedTitle
			continue
		}
		title, ok := decodeTitle(prop)
		if !ok {
			label = UndecodableTitle
			continue
		}
		return title, nil
	}
	return placeholder(label, w), nil
}
