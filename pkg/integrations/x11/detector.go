package x11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/focuslog/pkg/window"
)

// titleLength is the longest title read, in 32-bit units
const titleLength = 1024

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"WM_NAME",
	"UTF8_STRING",
	"COMPOUND_TEXT",
}

// Detector implements window.Source over a connection to an X server. Root
// window property changes are selected at connection time, so focus changes
// arrive as events without polling.
type Detector struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
	once  sync.Once
}

// NewDetector connects to display, or $DISPLAY when empty
func NewDetector(display string) (*Detector, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	d := &Detector{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		d.atoms[name] = reply.Atom
	}

	if err := d.selectPropertyChanges(d.root, true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to watch root window: %w", err)
	}

	return d, nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// ActiveWindow reads _NET_ACTIVE_WINDOW from the root window
func (d *Detector) ActiveWindow() (window.Ref, bool, error) {
	reply, err := xproto.GetProperty(d.conn, false, d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return window.None, false, mapError(err)
	}
	if reply.Format == 0 || len(reply.Value) < 4 {
		return window.None, false, nil
	}
	return window.Ref(binary.LittleEndian.Uint32(reply.Value)), true, nil
}

// Watch selects property change events on w
func (d *Detector) Watch(w window.Ref) error {
	return d.selectPropertyChanges(xproto.Window(w), true)
}

// Unwatch clears the event mask of w
func (d *Detector) Unwatch(w window.Ref) error {
	return d.selectPropertyChanges(xproto.Window(w), false)
}

func (d *Detector) selectPropertyChanges(w xproto.Window, on bool) error {
	var mask uint32
	if on {
		mask = xproto.EventMaskPropertyChange
	}
	err := xproto.ChangeWindowAttributesChecked(d.conn, w, xproto.CwEventMask, []uint32{mask}).Check()
	return mapError(err)
}

// Title reads _NET_WM_NAME or WM_NAME of w with whatever type it was set with
func (d *Detector) Title(w window.Ref, enc window.Encoding) (window.Property, error) {
	atom := d.atoms["_NET_WM_NAME"]
	if enc == window.EncodingLegacy {
		atom = d.atoms["WM_NAME"]
	}

	reply, err := xproto.GetProperty(d.conn, false, xproto.Window(w), atom, xproto.GetPropertyTypeAny, 0, titleLength).Reply()
	if err != nil {
		return window.Property{}, mapError(err)
	}
	if reply.Type == xproto.AtomNone {
		return window.Property{}, nil
	}
	return window.Property{Value: reply.Value, Type: d.propertyType(reply.Type)}, nil
}

func (d *Detector) propertyType(t xproto.Atom) window.PropertyType {
	switch t {
	case d.atoms["UTF8_STRING"]:
		return window.TypeUTF8
	case xproto.AtomString:
		return window.TypeString
	case d.atoms["COMPOUND_TEXT"]:
		return window.TypeCompound
	default:
		return window.TypeUnknown
	}
}

// NextEvent blocks for the next event from the server. Protocol errors
// delivered as events are reported as EventOther.
func (d *Detector) NextEvent() (window.Event, error) {
	ev, xerr := d.conn.WaitForEvent()
	if ev == nil && xerr == nil {
		return window.Event{}, window.ErrClosed
	}
	if xerr != nil {
		return window.Event{Kind: window.EventOther}, nil
	}
	return d.translate(ev), nil
}

func (d *Detector) translate(ev xgb.Event) window.Event {
	pn, ok := ev.(xproto.PropertyNotifyEvent)
	if !ok {
		return window.Event{Kind: window.EventOther}
	}

	out := window.Event{Kind: window.EventPropertyChanged, Window: window.Ref(pn.Window)}
	switch pn.Atom {
	case d.atoms["_NET_ACTIVE_WINDOW"]:
		out.Atom = window.AtomActiveWindow
	case d.atoms["_NET_WM_NAME"]:
		out.Atom = window.AtomTitleUTF8
	case d.atoms["WM_NAME"]:
		out.Atom = window.AtomTitleLegacy
	default:
		out.Atom = window.AtomOther
	}
	return out
}

// Close closes the connection, which unblocks NextEvent
func (d *Detector) Close() error {
	d.once.Do(d.conn.Close)
	return nil
}

// mapError turns BadWindow into window.ErrBadWindow
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var badWindow xproto.WindowError
	if errors.As(err, &badWindow) {
		return fmt.Errorf("%w: %v", window.ErrBadWindow, err)
	}
	return err
}
