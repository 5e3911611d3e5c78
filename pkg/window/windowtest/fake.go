// Package windowtest provides scriptable in-memory window and input sources.
package windowtest

import (
	"sync"
	"time"

	"github.com/actionsum/focuslog/pkg/window"
)

type windowProps struct {
	utf8   window.Property
	legacy window.Property
}

// Source is a fake window.Source. Windows and the active window are set by the
// test; events are queued with Push and returned by NextEvent in order.
type Source struct {
	mu        sync.Mutex
	active    window.Ref
	hasActive bool
	windows   map[window.Ref]*windowProps
	watched   map[window.Ref]bool
	events    chan window.Event
	closed    chan struct{}
	once      sync.Once
	Watches   []window.Ref
	Unwatches []window.Ref
}

// NewSource returns an empty fake source
func NewSource() *Source {
	return &Source{
		windows: make(map[window.Ref]*windowProps),
		watched: make(map[window.Ref]bool),
		events:  make(chan window.Event, 64),
		closed:  make(chan struct{}),
	}
}

// AddWindow registers a window with a UTF-8 title
func (s *Source) AddWindow(w window.Ref, title string) {
	s.SetProperty(w, window.EncodingUTF8, window.Property{Value: []byte(title), Type: window.TypeUTF8})
}

// SetProperty sets a raw title property on a window, creating the window
func (s *Source) SetProperty(w window.Ref, enc window.Encoding, p window.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.windows[w]
	if !ok {
		props = &windowProps{}
		s.windows[w] = props
	}
	if enc == window.EncodingUTF8 {
		props.utf8 = p
	} else {
		props.legacy = p
	}
}

// RemoveWindow makes later requests for w fail with ErrBadWindow
func (s *Source) RemoveWindow(w window.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, w)
	delete(s.watched, w)
}

// SetActive sets the value of the active window property
func (s *Source) SetActive(w window.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = w
	s.hasActive = true
}

// ClearActive removes the active window property
func (s *Source) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = window.None
	s.hasActive = false
}

// Watched reports whether w currently has a subscription
func (s *Source) Watched(w window.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched[w]
}

// Push queues a notification
func (s *Source) Push(ev window.Event) {
	s.events <- ev
}

// Activate sets the active window and queues the matching notification
func (s *Source) Activate(w window.Ref) {
	s.SetActive(w)
	s.Push(window.Event{Kind: window.EventPropertyChanged, Atom: window.AtomActiveWindow})
}

// Rename changes the UTF-8 title of w and queues the matching notification
func (s *Source) Rename(w window.Ref, title string) {
	s.AddWindow(w, title)
	s.Push(window.Event{Kind: window.EventPropertyChanged, Window: w, Atom: window.AtomTitleUTF8})
}

func (s *Source) ActiveWindow() (window.Ref, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.hasActive, nil
}

func (s *Source) Watch(w window.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[w]; !ok {
		return window.ErrBadWindow
	}
	s.watched[w] = true
	s.Watches = append(s.Watches, w)
	return nil
}

func (s *Source) Unwatch(w window.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unwatches = append(s.Unwatches, w)
	if _, ok := s.windows[w]; !ok {
		return window.ErrBadWindow
	}
	delete(s.watched, w)
	return nil
}

func (s *Source) Title(w window.Ref, enc window.Encoding) (window.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.windows[w]
	if !ok {
		return window.Property{}, window.ErrBadWindow
	}
	if enc == window.EncodingUTF8 {
		return props.utf8, nil
	}
	return props.legacy, nil
}

func (s *Source) NextEvent() (window.Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.closed:
		return window.Event{}, window.ErrClosed
	}
}

func (s *Source) GetDisplayServer() string {
	return "fake"
}

func (s *Source) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// InputSource is a fake window.InputSource fed through Push
type InputSource struct {
	inputs chan time.Time
	closed chan struct{}
	once   sync.Once
}

// NewInputSource returns an empty fake input source
func NewInputSource() *InputSource {
	return &InputSource{
		inputs: make(chan time.Time, 64),
		closed: make(chan struct{}),
	}
}

// Push queues an input occurrence
func (s *InputSource) Push(t time.Time) {
	s.inputs <- t
}

func (s *InputSource) NextInput() (time.Time, error) {
	select {
	case t := <-s.inputs:
		return t, nil
	case <-s.closed:
		return time.Time{}, window.ErrClosed
	}
}

func (s *InputSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
