// Package cli provides shared formatting helpers for the lldpsync CLI.
package cli

import (
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

// SetColor forces color on or off. By default color follows NO_COLOR and
// whether stdout is a terminal.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// Green renders s in green.
func Green(s string) string { return green.Sprint(s) }

// Yellow renders s in yellow.
func Yellow(s string) string { return yellow.Sprint(s) }

// Red renders s in red.
func Red(s string) string { return red.Sprint(s) }

// Bold renders s in bold.
func Bold(s string) string { return bold.Sprint(s) }

// Dim renders s dimmed.
func Dim(s string) string { return dim.Sprint(s) }

// Status colors a reconciliation status for tables.
func Status(s string) string {
	switch s {
	case "updated":
		return Green(s)
	case "unchanged", "skipped":
		return Dim(s)
	case "verification_failed":
		return Yellow(s)
	case "validation_error":
		return Red(s)
	}
	return s
}

// DotPad pads name with dots to the given width.
// Example: DotPad("Gi1/0/1", 20) → "Gi1/0/1 ............"
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}
