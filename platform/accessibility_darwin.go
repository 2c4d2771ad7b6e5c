//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

static bool pip_is_process_trusted(bool prompt) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
    CFDictionaryRef options = CFDictionaryCreate(kCFAllocatorDefault,
        keys,
        values,
        1,
        &kCFTypeDictionaryKeyCallBacks,
        &kCFTypeDictionaryValueCallBacks);
    bool trusted = AXIsProcessTrustedWithOptions(options);
    CFRelease(options);
    return trusted;
}
*/
import "C"

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

const accessibilitySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"

// DarwinAccessibility implements the Accessibility interface for macOS
type DarwinAccessibility struct{}

// NewAccessibility creates a new macOS accessibility checker
func NewAccessibility() Accessibility {
	return &DarwinAccessibility{}
}

// Trusted reports whether the process may post keyboard events.
// With prompt set, macOS shows its permission dialog when untrusted.
func (a *DarwinAccessibility) Trusted(prompt bool) bool {
	return bool(C.pip_is_process_trusted(C.bool(prompt)))
}

// OpenAccessibilitySettings opens the Privacy & Security pane
func OpenAccessibilitySettings() error {
	return exec.Command("open", accessibilitySettingsURL).Start()
}

// OSVersion returns the macOS product version, e.g. "14.5"
func OSVersion() string {
	v, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return "darwin"
	}
	return "macOS " + v
}
