package focus

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/actionsum/focuslog/pkg/window"
)

const (
	// UnnamedTitle replaces the title of windows that expose no name property
	UnnamedTitle = "<unnamed window>"

	// UndecodableTitle replaces a title whose bytes cannot be decoded
	UndecodableTitle = "<could not decode characters>"
)

// placeholder formats the fallback title for a window
func placeholder(label string, w window.Ref) string {
	return fmt.Sprintf("%s (XID: %d)", label, uint32(w))
}

// decodeTitle turns a raw property into a string. ok is false when the bytes
// cannot be decoded for the declared type.
func decodeTitle(p window.Property) (title string, ok bool) {
	raw := bytes.TrimRight(p.Value, "\x00")

	switch p.Type {
	case window.TypeString:
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(s), true

	case window.TypeUTF8:
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true

	default:
		// COMPOUND_TEXT and unknown types: read as UTF-8, replacing bad sequences like xprop
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), true
	}
}
