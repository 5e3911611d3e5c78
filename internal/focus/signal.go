package focus

import (
	"github.com/actionsum/focuslog/pkg/window"
)

// Signal folds raw property notifications into "title changed" events,
// dropping notifications that re-report the current window or title.
type Signal struct {
	resolver *Resolver
}

// NewSignal creates a signal over a resolver
func NewSignal(resolver *Resolver) *Signal {
	return &Signal{resolver: resolver}
}

// Resolver returns the underlying resolver
func (s *Signal) Resolver() *Resolver {
	return s.resolver
}

// Prime resolves the window and title active right now without signalling
func (s *Signal) Prime() State {
	w, _ := s.resolver.ResolveActiveWindow()
	s.resolver.ResolveTitle(w)
	return s.resolver.State()
}

// Handle processes one notification. It reports the current title and
// whether this notification changed it; at most one change per call.
func (s *Signal) Handle(ev window.Event) (string, bool) {
	if ev.Kind != window.EventPropertyChanged {
		return "", false
	}

	changed := false
	switch ev.Atom {
	case window.AtomActiveWindow:
		if w, focusChanged := s.resolver.ResolveActiveWindow(); focusChanged {
			// Refresh the cached title for the new window
			s.resolver.ResolveTitle(w)
			changed = true
		}
	case window.AtomTitleUTF8, window.AtomTitleLegacy:
		tracked := s.resolver.State().Window
		if tracked == window.None || (ev.Window != window.None && ev.Window != tracked) {
			// Late notification from a window we no longer follow
			return s.resolver.State().Title, false
		}
		_, changed = s.resolver.ResolveTitle(tracked)
	default:
		return "", false
	}

	return s.resolver.State().Title, changed
}
