package x11

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/focuslog/pkg/window"
)

func testDetector() *Detector {
	return &Detector{atoms: map[string]xproto.Atom{
		"_NET_ACTIVE_WINDOW": 300,
		"_NET_WM_NAME":       301,
		"WM_NAME":            xproto.AtomWmName,
		"UTF8_STRING":        302,
		"COMPOUND_TEXT":      303,
	}}
}

func TestGetDisplayServer(t *testing.T) {
	if got := testDetector().GetDisplayServer(); got != "x11" {
		t.Errorf("GetDisplayServer() = %s, want %s", got, "x11")
	}
}

func TestTranslate(t *testing.T) {
	d := testDetector()
	tests := []struct {
		name string
		ev   xproto.PropertyNotifyEvent
		want window.Atom
	}{
		{"active window", xproto.PropertyNotifyEvent{Window: 1, Atom: 300}, window.AtomActiveWindow},
		{"utf8 title", xproto.PropertyNotifyEvent{Window: 7, Atom: 301}, window.AtomTitleUTF8},
		{"legacy title", xproto.PropertyNotifyEvent{Window: 7, Atom: xproto.AtomWmName}, window.AtomTitleLegacy},
		{"other property", xproto.PropertyNotifyEvent{Window: 7, Atom: 999}, window.AtomOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.translate(tt.ev)
			if got.Kind != window.EventPropertyChanged {
				t.Errorf("Kind = %v, want EventPropertyChanged", got.Kind)
			}
			if got.Atom != tt.want {
				t.Errorf("Atom = %v, want %v", got.Atom, tt.want)
			}
			if got.Window != window.Ref(tt.ev.Window) {
				t.Errorf("Window = %d, want %d", got.Window, tt.ev.Window)
			}
		})
	}

	if got := d.translate(xproto.FocusInEvent{}); got.Kind != window.EventOther {
		t.Errorf("non property event translated to %+v", got)
	}
}

func TestPropertyType(t *testing.T) {
	d := testDetector()
	tests := []struct {
		atom xproto.Atom
		want window.PropertyType
	}{
		{302, window.TypeUTF8},
		{xproto.AtomString, window.TypeString},
		{303, window.TypeCompound},
		{xproto.AtomCardinal, window.TypeUnknown},
	}

	for _, tt := range tests {
		if got := d.propertyType(tt.atom); got != tt.want {
			t.Errorf("propertyType(%d) = %v, want %v", tt.atom, got, tt.want)
		}
	}
}

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
	if err := mapError(xproto.WindowError{BadValue: 42}); !errors.Is(err, window.ErrBadWindow) {
		t.Errorf("BadWindow mapped to %v", err)
	}
	other := xproto.AccessError{}
	if err := mapError(other); errors.Is(err, window.ErrBadWindow) {
		t.Errorf("BadAccess should not map to ErrBadWindow")
	}
}

func TestInputSince(t *testing.T) {
	prev := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	now := prev.Add(250 * time.Millisecond)

	if _, ok := inputSince(prev, now, 5*time.Second); ok {
		t.Error("idle longer than the sample interval should not report input")
	}
	if _, ok := inputSince(prev, now, 250*time.Millisecond); ok {
		t.Error("input exactly at the previous sample was already reported")
	}
	at, ok := inputSince(prev, now, 100*time.Millisecond)
	if !ok {
		t.Fatal("recent input not reported")
	}
	if want := now.Add(-100 * time.Millisecond); !at.Equal(want) {
		t.Errorf("input at %v, want %v", at, want)
	}
}

func TestNewDetector(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("X11 display not available on this system")
	}

	detector, err := NewDetector("")
	if err != nil {
		t.Skipf("cannot connect to X server: %v", err)
	}
	defer detector.Close()

	w, ok, err := detector.ActiveWindow()
	if err != nil {
		t.Fatalf("ActiveWindow() error: %v", err)
	}
	t.Logf("Active window: %d (property set: %v)", w, ok)

	if ok && w != window.None {
		p, err := detector.Title(w, window.EncodingUTF8)
		if err != nil && !errors.Is(err, window.ErrBadWindow) {
			t.Errorf("Title() error: %v", err)
		}
		t.Logf("Title: %q (type %v)", p.Value, p.Type)
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Source = (*Detector)(nil)
	var _ window.InputSource = (*InputMonitor)(nil)
}
