package detector

import (
	"fmt"
	"os"
	"time"

	"github.com/actionsum/focuslog/pkg/integrations/x11"
	"github.com/actionsum/focuslog/pkg/window"
)

// New opens the window source and input source for the running display
// server. Only X11 exposes the property events the tracker is built on;
// XWayland sessions work through their DISPLAY.
func New(display string, pollInterval time.Duration) (window.Source, window.InputSource, error) {
	server := DetectDisplayServer()
	if display == "" && server != "x11" && os.Getenv("DISPLAY") == "" {
		return nil, nil, fmt.Errorf("unsupported display server: %s (an X11 DISPLAY is required)", server)
	}

	source, err := x11.NewDetector(display)
	if err != nil {
		return nil, nil, err
	}

	inputs, err := x11.NewInputMonitor(display, pollInterval)
	if err != nil {
		source.Close()
		return nil, nil, err
	}

	return source, inputs, nil
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
