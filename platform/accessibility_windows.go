//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// WindowsAccessibility implements the Accessibility interface for Windows.
// SendInput needs no grant outside of UIPI, so the process is always trusted.
type WindowsAccessibility struct{}

// NewAccessibility creates a new Windows accessibility checker
func NewAccessibility() Accessibility {
	return &WindowsAccessibility{}
}

// Trusted always reports true on Windows
func (a *WindowsAccessibility) Trusted(prompt bool) bool {
	return true
}

// OpenAccessibilitySettings has no Windows equivalent
func OpenAccessibilitySettings() error {
	return ErrUnsupported
}

// OSVersion returns the Windows version triple
func OSVersion() string {
	v := windows.RtlGetVersion()
	return fmt.Sprintf("Windows %d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
