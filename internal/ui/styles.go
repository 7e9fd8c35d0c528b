// Package ui holds terminal color helpers shared by the treasuryd CLI
// commands.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorOnline  = 114 // green
	colorAway    = 179 // amber
	colorOffline = 245 // gray
)

var noColor bool

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// RenderStatus colors a presence status: green for online, amber for
// away, gray for offline.
func RenderStatus(status string) string {
	if noColor {
		return status
	}
	code := colorOffline
	switch status {
	case "online":
		code = colorOnline
	case "away":
		code = colorAway
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, status)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
