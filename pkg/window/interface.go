package window

import (
	"errors"
	"time"
)

// Ref is an X11 window id. None means "no window".
type Ref uint32

// None is the absent window.
const None Ref = 0

// Atom identifies the window properties the tracker reacts to
type Atom int

const (
	AtomOther        Atom = iota
	AtomActiveWindow      // _NET_ACTIVE_WINDOW on the root window
	AtomTitleUTF8         // _NET_WM_NAME
	AtomTitleLegacy       // WM_NAME
)

// EventKind separates property notifications from everything else the server sends
type EventKind int

const (
	EventOther EventKind = iota
	EventPropertyChanged
)

// Event is a notification read from a window source
type Event struct {
	Kind   EventKind
	Window Ref
	Atom   Atom
}

// Encoding selects which title property to read
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingLegacy
)

// PropertyType is the declared type of a title property value
type PropertyType int

const (
	TypeUnknown  PropertyType = iota
	TypeUTF8                  // UTF8_STRING
	TypeString                // STRING, ISO-8859-1
	TypeCompound              // COMPOUND_TEXT
)

// Property is the raw value of a title property. An empty Value means the
// property is not set on the window.
type Property struct {
	Value []byte
	Type  PropertyType
}

var (
	// ErrBadWindow is returned when a window disappears between query and use
	ErrBadWindow = errors.New("window no longer exists")

	// ErrClosed is returned by blocking reads after Close
	ErrClosed = errors.New("source closed")
)

// Source is the windowing-system collaborator consumed by the focus resolver
type Source interface {
	// ActiveWindow returns the window named by the root _NET_ACTIVE_WINDOW
	// property. ok is false when the property is absent; a present property
	// may still name None when nothing has focus.
	ActiveWindow() (w Ref, ok bool, err error)

	// Watch subscribes to property change notifications on a window
	Watch(w Ref) error

	// Unwatch drops the property change subscription on a window
	Unwatch(w Ref) error

	// Title reads a title property of a window
	Title(w Ref, enc Encoding) (Property, error)

	// NextEvent blocks until the next notification arrives
	NextEvent() (Event, error)

	// GetDisplayServer returns the display server type ("x11")
	GetDisplayServer() string

	// Close releases the connection and unblocks NextEvent
	Close() error
}

// InputSource reports raw input activity (key, button, pointer motion).
type InputSource interface {
	// NextInput blocks until input occurs and returns when it happened
	NextInput() (time.Time, error)

	// Close releases resources and unblocks NextInput
	Close() error
}
